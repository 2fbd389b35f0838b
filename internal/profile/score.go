package profile

import "math"

// Band labels a sustainability score.
type Band string

const (
	BandLow       Band = "LOW"
	BandGood      Band = "GOOD"
	BandExcellent Band = "EXCELLENT"
)

// SustainabilityScore weights lesson progress 60% and quest progress 40%.
// A ratio with a zero total counts as 0.
func SustainabilityScore(completedLessons, totalLessons, completedQuests, totalQuests int) int {
	return int(math.Round(60*ratio(completedLessons, totalLessons) + 40*ratio(completedQuests, totalQuests)))
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// BandFor returns the label for score.
func BandFor(score int) Band {
	switch {
	case score < 40:
		return BandLow
	case score < 70:
		return BandGood
	default:
		return BandExcellent
	}
}
