package scoring

// Decision is the three-way outcome of a validation.
type Decision string

const (
	Accept Decision = "accept"
	Review Decision = "review"
	Reject Decision = "reject"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Clamp bounds a raw score to [MinScore, MaxScore].
func Clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// Decide maps a final score to a decision using the rule thresholds.
func Decide(score int, r Rules) Decision {
	switch {
	case score >= r.AcceptAt:
		return Accept
	case score >= r.ReviewAt:
		return Review
	default:
		return Reject
	}
}
