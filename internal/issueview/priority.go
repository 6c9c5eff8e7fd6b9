package issueview

// PriorityTier buckets a priority score.
type PriorityTier string

const (
	PriorityLow    PriorityTier = "low"
	PriorityMedium PriorityTier = "medium"
	PriorityHigh   PriorityTier = "high"
)

const (
	highThreshold   = 0.8
	mediumThreshold = 0.5
)

// ClassifyPriority buckets p using inclusive lower bounds. Scores outside
// [0,1] are not clamped.
func ClassifyPriority(p float64) PriorityTier {
	switch {
	case p >= highThreshold:
		return PriorityHigh
	case p >= mediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
