package detect

import (
	"math"

	"StructPulse/internal/domain/models"
)

// MSSDetector recognizes a Market Structure Shift: a displacement of at least
// minDisplacement between the last two opposite swing points. Confidence is
// derived from the displacement magnitude relative to the recent average bar
// range, so a violent leg scores higher than a drifting one.
type MSSDetector struct {
	minDisplacement float64 // price units
	avgRangeBars    int
}

func NewMSSDetector(minDisplacementPips, pipSize float64, avgRangeBars int) *MSSDetector {
	return &MSSDetector{
		minDisplacement: minDisplacementPips * pipSize,
		avgRangeBars:    avgRangeBars,
	}
}

func (d *MSSDetector) Type() models.PatternType { return models.PatternMSS }

func (d *MSSDetector) Detect(window []models.Candle, swings []models.SwingPoint) (models.BaseSignal, bool) {
	if len(window) == 0 || len(swings) < 2 {
		return models.BaseSignal{}, false
	}

	s1, s2 := swings[len(swings)-2], swings[len(swings)-1]
	if s1.Kind == s2.Kind {
		return models.BaseSignal{}, false
	}

	displacement := math.Abs(s2.Price - s1.Price)
	if displacement < d.minDisplacement {
		return models.BaseSignal{}, false
	}

	avg := AverageRange(window, d.avgRangeBars)
	if avg <= 0 {
		return models.BaseSignal{}, false
	}

	dir := models.Bullish
	if s2.Kind == models.SwingLow {
		// leg displaced downward through structure
		dir = models.Bearish
	}

	last := window[len(window)-1]
	conf := ClampConfidence(50 + int(math.Round(displacement/avg*10)))
	return models.BaseSignal{
		Pattern:        models.PatternMSS,
		Symbol:         last.Symbol,
		Direction:      dir,
		BreakLevel:     s2.Price,
		BaseConfidence: conf,
		Timestamp:      last.Timestamp,
	}, true
}
