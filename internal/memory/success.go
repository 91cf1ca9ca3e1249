package memory

import "StructPulse/internal/domain/models"

// SuccessRate computes success / (success + failure) over the resolved events
// in the slice, optionally restricted to one direction. Pending records are
// excluded. With zero resolved samples the rate is a neutral 0.5.
//
// The returned count is the number of resolved samples behind the rate.
func SuccessRate(events []models.BreakEvent, dir *models.Direction) (float64, int) {
	successes, failures := 0, 0
	for _, ev := range events {
		if dir != nil && ev.Direction != *dir {
			continue
		}
		switch ev.Outcome {
		case models.OutcomeSuccess:
			successes++
		case models.OutcomeFailure:
			failures++
		}
	}
	resolved := successes + failures
	if resolved == 0 {
		return 0.5, 0
	}
	return float64(successes) / float64(resolved), resolved
}
