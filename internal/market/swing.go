package market

import (
	"StructPulse/internal/domain/models"
)

// DetectSwings finds local extrema with a symmetric fixed lookback: bar i is a
// swing high when its high beats every bar within `lookback` on both sides,
// a swing low is the mirrored rule on lows. Ties prefer the most recent bar,
// so equality against earlier bars is tolerated while a later equal extreme
// disqualifies the earlier one. Stateless; recomputed per call.
func DetectSwings(bars []models.Candle, lookback int) []models.SwingPoint {
	if lookback <= 0 || len(bars) < 2*lookback+1 {
		return nil
	}

	out := make([]models.SwingPoint, 0, len(bars)/4)
	for i := lookback; i < len(bars)-lookback; i++ {
		hi, lo := true, true
		for j := i - lookback; j < i; j++ {
			if bars[j].High > bars[i].High {
				hi = false
			}
			if bars[j].Low < bars[i].Low {
				lo = false
			}
			if !hi && !lo {
				break
			}
		}
		if hi || lo {
			for j := i + 1; j <= i+lookback; j++ {
				if bars[j].High >= bars[i].High {
					hi = false
				}
				if bars[j].Low <= bars[i].Low {
					lo = false
				}
				if !hi && !lo {
					break
				}
			}
		}
		if hi {
			out = append(out, models.SwingPoint{
				Index:     i,
				Price:     bars[i].High,
				Kind:      models.SwingHigh,
				Timestamp: bars[i].Timestamp,
			})
		}
		if lo {
			out = append(out, models.SwingPoint{
				Index:     i,
				Price:     bars[i].Low,
				Kind:      models.SwingLow,
				Timestamp: bars[i].Timestamp,
			})
		}
	}
	return out
}

// LastSwings returns the most recent n swings of the given kind, newest last.
func LastSwings(swings []models.SwingPoint, kind models.SwingKind, n int) []models.SwingPoint {
	out := make([]models.SwingPoint, 0, n)
	for i := len(swings) - 1; i >= 0 && len(out) < n; i-- {
		if swings[i].Kind == kind {
			out = append(out, swings[i])
		}
	}
	// reverse to oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
