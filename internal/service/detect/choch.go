package detect

import (
	"StructPulse/internal/domain/models"
	"StructPulse/internal/market"
)

// CHoCHDetector recognizes a Change of Character: a break of a swing point
// against the prevailing structure, signaling a potential reversal. Same swing
// infrastructure as BOS with the directional logic inverted.
type CHoCHDetector struct {
	base int
}

func NewCHoCHDetector(baseConfidence int) *CHoCHDetector {
	return &CHoCHDetector{base: baseConfidence}
}

func (d *CHoCHDetector) Type() models.PatternType { return models.PatternCHoCH }

func (d *CHoCHDetector) Detect(window []models.Candle, swings []models.SwingPoint) (models.BaseSignal, bool) {
	if len(window) == 0 {
		return models.BaseSignal{}, false
	}
	last := window[len(window)-1]

	highs := market.LastSwings(swings, models.SwingHigh, 2)
	lows := market.LastSwings(swings, models.SwingLow, 2)
	if len(highs) < 2 || len(lows) < 2 {
		return models.BaseSignal{}, false
	}

	downtrend := highs[1].Price < highs[0].Price && lows[1].Price < lows[0].Price
	uptrend := highs[1].Price > highs[0].Price && lows[1].Price > lows[0].Price

	// bullish CHoCH: downtrend structure, yet the close reclaims the last swing high
	if downtrend && last.Close > highs[1].Price {
		return d.signal(last, models.Bullish, highs[1].Price), true
	}
	if uptrend && last.Close < lows[1].Price {
		return d.signal(last, models.Bearish, lows[1].Price), true
	}

	return models.BaseSignal{}, false
}

func (d *CHoCHDetector) signal(last models.Candle, dir models.Direction, level float64) models.BaseSignal {
	return models.BaseSignal{
		Pattern:        models.PatternCHoCH,
		Symbol:         last.Symbol,
		Direction:      dir,
		BreakLevel:     level,
		BaseConfidence: ClampConfidence(d.base + momentumBoost(last)),
		Timestamp:      last.Timestamp,
	}
}
