package detect

import (
	"math"

	"StructPulse/internal/domain/models"
)

// BodyToRange returns the candle body as a fraction of its full range, in [0,1].
func BodyToRange(c models.Candle) float64 {
	r := c.Range()
	if r <= 0 {
		return 0
	}
	return c.Body() / r
}

// momentumBoost converts the breaking bar's body-to-range ratio into a small
// additive confidence adjustment in [0, 8].
func momentumBoost(c models.Candle) int {
	return int(math.Round(BodyToRange(c) * 8))
}

// AverageRange returns the mean high-low range over the last n bars.
func AverageRange(bars []models.Candle, n int) float64 {
	if len(bars) == 0 || n <= 0 {
		return 0
	}
	if n > len(bars) {
		n = len(bars)
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Range()
	}
	return sum / float64(n)
}

// ClampConfidence bounds a confidence score to [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
