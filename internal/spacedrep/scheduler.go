package spacedrep

import (
	"time"

	"github.com/abhisek/studycoach/internal/store"
)

// Candidate is a topic offered to the scheduler. State is nil for topics
// that have no history yet.
type Candidate struct {
	ID    string
	Title string
	State *store.TopicState
}

// Selection is the scheduler's decision.
type Selection struct {
	Candidate

	// Score is the composite score of the chosen topic, or FallbackScore.
	Score float64

	// Fallback is true when every candidate had been reviewed today and the
	// first one was picked for extra practice.
	Fallback bool
}

// SelectTopic picks the candidate with the highest composite score among
// those not reviewed on now's date. Ties go to the earlier candidate. When
// every candidate was reviewed today, the first candidate is returned with
// FallbackScore. ok is false only for an empty candidate list.
func SelectTopic(candidates []Candidate, now time.Time) (sel Selection, ok bool) {
	if len(candidates) == 0 {
		return Selection{}, false
	}

	found := false
	for _, c := range candidates {
		if ReviewedOn(c.State, now) {
			continue
		}
		score := CompositeScore(c.State, now)
		if !found || score > sel.Score {
			sel = Selection{Candidate: c, Score: score}
			found = true
		}
	}

	if !found {
		return Selection{Candidate: candidates[0], Score: FallbackScore, Fallback: true}, true
	}
	return sel, true
}

// CompositeScore blends the forgetting-curve score with performance
// urgency and review rarity.
func CompositeScore(ts *store.TopicState, now time.Time) float64 {
	return WeightScore*Score(ts, now) +
		WeightUrgency*PerformanceUrgency(ts) +
		WeightRarity*ReviewRarity(ts)
}

// PerformanceUrgency maps the most recent evaluation level to a fixed
// urgency; topics never evaluated are the most urgent.
func PerformanceUrgency(ts *store.TopicState) float64 {
	level, ok := ts.LastLevel()
	if !ok {
		return UrgencyNeverEvaluated
	}
	switch level {
	case store.LevelLow:
		return UrgencyLow
	case store.LevelHigh:
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

// ReviewRarity favors topics with fewer completed reviews.
func ReviewRarity(ts *store.TopicState) float64 {
	reviews := 0
	if ts != nil {
		reviews = ts.Reviews
	}
	return 10.0 / float64(reviews+1)
}
