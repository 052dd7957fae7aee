package mastery

import "github.com/abhisek/studycoach/internal/store"

// Window is the number of most recent performance records that determine
// a topic's mastery level.
const Window = 5

// Threshold is the share of the window a band must reach.
const Threshold = 0.6

// Transition records a mastery level change for logging and notification.
type Transition struct {
	TopicID string
	Title   string
	From    store.MasteryLevel
	To      store.MasteryLevel
}

// Changed reports whether the level actually moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Derive computes the mastery level from the last Window records:
// advanced when at least 60% are high, intermediate when at least 60% are
// high or medium, novice otherwise. An empty history is novice.
func Derive(records []store.PerformanceRecord) store.MasteryLevel {
	if len(records) > Window {
		records = records[len(records)-Window:]
	}
	if len(records) == 0 {
		return store.MasteryNovice
	}

	var high, medium int
	for _, r := range records {
		switch r.Level {
		case store.LevelHigh:
			high++
		case store.LevelMedium:
			medium++
		}
	}

	n := float64(len(records))
	switch {
	case float64(high)/n >= Threshold:
		return store.MasteryAdvanced
	case float64(high+medium)/n >= Threshold:
		return store.MasteryIntermediate
	default:
		return store.MasteryNovice
	}
}
