package spacedrep

// Forgetting-curve parameters.
const (
	// NeverReviewedScore is the priority of a topic with no review on record.
	NeverReviewedScore = 10.0

	// DecayConstant is K in retention = exp(-days/K). Smaller forgets faster.
	DecayConstant = 2.0

	// ForgetCeiling is C, the upper bound of the forgetfulness component.
	ForgetCeiling = 10.0

	// PerformanceWeight is W, how strongly weak recent levels raise priority.
	PerformanceWeight = 0.3

	// PerformanceWindow is the number of recent records averaged.
	PerformanceWindow = 3

	// StarvationPerDay is S, the unconditional per-day priority increment.
	StarvationPerDay = 0.1

	// MaxScore caps the final score. It sits above ForgetCeiling so that
	// starvation can keep growing after forgetting saturates.
	MaxScore = 25.0
)

// Composite weights used by SelectTopic.
const (
	WeightScore   = 0.4
	WeightUrgency = 0.4
	WeightRarity  = 0.2

	// FallbackScore is reported when every candidate was reviewed today.
	FallbackScore = 1.0
)

// Urgency by the level of the most recent evaluation.
const (
	UrgencyNeverEvaluated = 10.0
	UrgencyLow            = 8.0
	UrgencyMedium         = 5.0
	UrgencyHigh           = 2.0
)

// GapWindow is the number of recent records mined for learning gaps, and
// MaxGaps the number returned.
const (
	GapWindow = 5
	MaxGaps   = 5
)
