package spacedrep

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/studycoach/internal/store"
)

// Score returns the review priority of a topic at now. Higher is more
// urgent. The result is in [0, MaxScore] and depends only on its inputs.
func Score(ts *store.TopicState, now time.Time) float64 {
	days, ok := DaysSince(ts, now)
	if !ok {
		return NeverReviewedScore
	}

	retention := math.Exp(-float64(days) / DecayConstant)
	forgetfulness := ForgetCeiling * (1 - retention)

	if recent := ts.RecentPerformance(PerformanceWindow); len(recent) > 0 {
		total := 0
		for _, p := range recent {
			total += p.Level.Points()
		}
		avg := float64(total) / float64(len(recent))
		forgetfulness *= 1 + (3-avg)*PerformanceWeight
	}

	score := forgetfulness + float64(days)*StarvationPerDay
	return math.Min(score, MaxScore)
}

// DaysSince returns the number of calendar days between the topic's last
// review and now, in now's location. ok is false when the topic has never
// been reviewed. Future review dates count as zero days.
func DaysSince(ts *store.TopicState, now time.Time) (int, bool) {
	last, ok := ts.LastReviewedDate(now.Location())
	if !ok {
		return 0, false
	}
	today := truncateToDay(now)
	days := int(math.Round(today.Sub(last).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return days, true
}

// ReviewedOn reports whether the topic's last review falls on now's date.
func ReviewedOn(ts *store.TopicState, now time.Time) bool {
	if ts == nil {
		return false
	}
	return ts.LastReviewed == now.Format(store.DateLayout)
}

// LearningGaps returns the most frequent gaps across the last GapWindow
// evaluations, most frequent first, ties in first-seen order.
func LearningGaps(ts *store.TopicState) []string {
	counts := make(map[string]int)
	var order []string
	for _, p := range ts.RecentPerformance(GapWindow) {
		for _, gap := range p.Evaluation.Gaps {
			if gap == "" {
				continue
			}
			if _, seen := counts[gap]; !seen {
				order = append(order, gap)
			}
			counts[gap]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > MaxGaps {
		order = order[:MaxGaps]
	}
	return order
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
