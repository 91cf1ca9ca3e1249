package detect

import (
	"StructPulse/internal/domain/models"
)

// FVGDetector recognizes a Fair Value Gap: a three-bar imbalance where the
// wicks of the outer bars do not overlap. Gaps outside [minGap, maxGap] are
// treated as noise and skipped. Confidence is a fixed baseline, independent
// of momentum.
type FVGDetector struct {
	base   int
	minGap float64 // price units
	maxGap float64
}

func NewFVGDetector(baseConfidence int, minGapPips, maxGapPips, pipSize float64) *FVGDetector {
	return &FVGDetector{
		base:   baseConfidence,
		minGap: minGapPips * pipSize,
		maxGap: maxGapPips * pipSize,
	}
}

func (d *FVGDetector) Type() models.PatternType { return models.PatternFVG }

func (d *FVGDetector) Detect(window []models.Candle, _ []models.SwingPoint) (models.BaseSignal, bool) {
	if len(window) < 3 {
		return models.BaseSignal{}, false
	}

	// most recent qualifying triple wins
	for i := len(window) - 2; i >= 1; i-- {
		prev, next := window[i-1], window[i+1]

		if gap := next.Low - prev.High; gap > 0 {
			if gap >= d.minGap && gap <= d.maxGap {
				return d.signal(window[len(window)-1], models.Bullish, prev.High+gap/2), true
			}
			continue
		}
		if gap := prev.Low - next.High; gap > 0 {
			if gap >= d.minGap && gap <= d.maxGap {
				return d.signal(window[len(window)-1], models.Bearish, next.High+gap/2), true
			}
		}
	}

	return models.BaseSignal{}, false
}

func (d *FVGDetector) signal(last models.Candle, dir models.Direction, level float64) models.BaseSignal {
	return models.BaseSignal{
		Pattern:        models.PatternFVG,
		Symbol:         last.Symbol,
		Direction:      dir,
		BreakLevel:     level,
		BaseConfidence: ClampConfidence(d.base),
		Timestamp:      last.Timestamp,
	}
}
