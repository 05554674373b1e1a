package validator

const (
	// ErrorPenalty is deducted from the stage maximum per error.
	ErrorPenalty = 20
	// WarningPenalty is deducted from the stage maximum per warning.
	WarningPenalty = 5
)

// Score converts diagnostic counts into points against maxScore. The result
// is never negative.
func Score(errors, warnings []string, maxScore int) int {
	score := maxScore - ErrorPenalty*len(errors) - WarningPenalty*len(warnings)
	if score < 0 {
		return 0
	}
	return score
}
