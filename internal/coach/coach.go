// Package coach turns a topic's review history into guidance for quiz
// generation.
package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/spacedrep"
	"github.com/abhisek/studycoach/internal/store"
)

const (
	// TrendWindow is the number of recent levels that must agree to report
	// a trend.
	TrendWindow = 3

	// FocusGaps is the number of learning gaps named in the instructions.
	FocusGaps = 3

	// VariedReviews is the review count above which questions should take
	// new angles.
	VariedReviews = 5

	// MaxRelated is the number of related topics offered as context.
	MaxRelated = 3

	// RecentDays is how recent a review must be for a topic to count as
	// related regardless of mastery.
	RecentDays = 7
)

// Instructions builds personalized generation guidance from the topic's
// history. A nil state is treated as a brand new topic.
func Instructions(ts *store.TopicState) string {
	var out []string

	mastery := store.MasteryNovice
	reviews := 0
	if ts != nil {
		mastery = ts.MasteryLevel
		reviews = ts.Reviews
	}

	switch {
	case mastery == store.MasteryAdvanced && reviews > 0:
		out = append(out, "The learner has ADVANCED mastery. "+
			"Ask challenging questions that require synthesis, critical evaluation and complex cases. "+
			"Avoid basic questions and connect with neighboring topics.")
	case mastery == store.MasteryIntermediate && reviews > 0:
		out = append(out, "The learner has INTERMEDIATE knowledge of this topic. "+
			"Go deeper into technical details and practical use cases. "+
			"Include questions that connect concepts and require analysis.")
	default:
		out = append(out, "This topic is NEW or weakly mastered. "+
			"Ask FUNDAMENTAL questions covering the core concepts: "+
			"definitions, key ideas and basic applications.")
	}

	if gaps := spacedrep.LearningGaps(ts); len(gaps) > 0 {
		if len(gaps) > FocusGaps {
			gaps = gaps[:FocusGaps]
		}
		out = append(out, fmt.Sprintf("ATTENTION: the learner has struggled with: %s. "+
			"Include at least two questions that reinforce these concepts.", strings.Join(gaps, ", ")))
	}

	switch trend(ts) {
	case store.LevelHigh:
		out = append(out, "Recent performance has been excellent. Raise the difficulty slightly to keep it challenging.")
	case store.LevelLow:
		out = append(out, "Recent performance has been weak. Make questions more approachable and reference answers more detailed.")
	}

	if reviews > VariedReviews {
		out = append(out, fmt.Sprintf("This topic has been reviewed %d times. "+
			"Vary the angle of the questions to avoid repetition.", reviews))
	}

	return strings.Join(out, "\n")
}

// trend returns the level shared by the last TrendWindow records, or ""
// when they disagree or there are too few.
func trend(ts *store.TopicState) store.Level {
	recent := ts.RecentPerformance(TrendWindow)
	if len(recent) < TrendWindow {
		return ""
	}
	first := recent[0].Level
	for _, p := range recent[1:] {
		if p.Level != first {
			return ""
		}
	}
	if first == store.LevelMedium {
		return ""
	}
	return first
}

// Related is a topic worth mentioning alongside the current one.
type Related struct {
	Title   string
	Mastery store.MasteryLevel
	Reviews int
}

// RelatedTopics returns up to MaxRelated topics, in candidate order, that
// share the current topic's mastery level or were reviewed within
// RecentDays. Topics with no history are skipped.
func RelatedTopics(doc *store.Document, topics []collab.Topic, currentID string, now time.Time) []Related {
	current := store.MasteryNovice
	if ts := doc.Topic(currentID); ts != nil && ts.MasteryLevel != "" {
		current = ts.MasteryLevel
	}

	var out []Related
	for _, t := range topics {
		if t.ID == currentID {
			continue
		}
		ts := doc.Topic(t.ID)
		if ts == nil {
			continue
		}
		mastery := ts.MasteryLevel
		if mastery == "" {
			mastery = store.MasteryNovice
		}
		days, reviewed := spacedrep.DaysSince(ts, now)
		if mastery != current && !(reviewed && days < RecentDays) {
			continue
		}
		title := ts.Title
		if title == "" {
			title = t.Title
		}
		out = append(out, Related{Title: title, Mastery: mastery, Reviews: ts.Reviews})
		if len(out) == MaxRelated {
			break
		}
	}
	return out
}

// FormatRelated renders related topics as a prompt section, or "" when
// there are none.
func FormatRelated(related []Related) string {
	if len(related) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== Related topics studied recently ===\n")
	for _, r := range related {
		fmt.Fprintf(&b, "- %s (level: %s, reviewed %d times)\n", r.Title, r.Mastery, r.Reviews)
	}
	b.WriteString("=== End related topics ===")
	return b.String()
}
