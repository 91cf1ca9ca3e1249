package detect

import (
	"StructPulse/internal/domain/models"
	"StructPulse/internal/market"
)

// BOSDetector recognizes a Break of Structure: the close pushing beyond the
// most recent swing extreme in the direction of the prevailing trend.
type BOSDetector struct {
	base int
}

func NewBOSDetector(baseConfidence int) *BOSDetector {
	return &BOSDetector{base: baseConfidence}
}

func (d *BOSDetector) Type() models.PatternType { return models.PatternBOS }

func (d *BOSDetector) Detect(window []models.Candle, swings []models.SwingPoint) (models.BaseSignal, bool) {
	if len(window) == 0 {
		return models.BaseSignal{}, false
	}
	last := window[len(window)-1]

	// bullish: the latest swing high made a higher high and the close broke it
	highs := market.LastSwings(swings, models.SwingHigh, 2)
	if len(highs) == 2 && highs[1].Price > highs[0].Price && last.Close > highs[1].Price {
		return d.signal(last, models.Bullish, highs[1].Price), true
	}

	lows := market.LastSwings(swings, models.SwingLow, 2)
	if len(lows) == 2 && lows[1].Price < lows[0].Price && last.Close < lows[1].Price {
		return d.signal(last, models.Bearish, lows[1].Price), true
	}

	return models.BaseSignal{}, false
}

func (d *BOSDetector) signal(last models.Candle, dir models.Direction, level float64) models.BaseSignal {
	return models.BaseSignal{
		Pattern:        models.PatternBOS,
		Symbol:         last.Symbol,
		Direction:      dir,
		BreakLevel:     level,
		BaseConfidence: ClampConfidence(d.base + momentumBoost(last)),
		Timestamp:      last.Timestamp,
	}
}
