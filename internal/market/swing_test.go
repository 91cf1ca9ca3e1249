package market

import (
	"testing"
	"time"

	"StructPulse/internal/domain/models"
)

// flat builds bars with constant range and the given highs/lows override.
func swingBars(highs, lows []float64) []models.Candle {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, len(highs))
	for i := range highs {
		bars[i] = models.Candle{
			Symbol:    "EURUSD",
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Open:      (highs[i] + lows[i]) / 2,
			High:      highs[i],
			Low:       lows[i],
			Close:     (highs[i] + lows[i]) / 2,
		}
	}
	return bars
}

func TestDetectSwingHigh(t *testing.T) {
	highs := []float64{1.0, 1.1, 1.5, 1.1, 1.0, 0.9, 0.95}
	lows := []float64{0.9, 1.0, 1.2, 1.0, 0.9, 0.8, 0.85}
	swings := DetectSwings(swingBars(highs, lows), 2)

	var found bool
	for _, s := range swings {
		if s.Kind == models.SwingHigh && s.Index == 2 && s.Price == 1.5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected swing high at index 2, got %+v", swings)
	}
}

func TestDetectSwingLow(t *testing.T) {
	highs := []float64{1.2, 1.1, 1.05, 1.1, 1.2, 1.3, 1.25}
	lows := []float64{1.1, 1.0, 0.9, 1.0, 1.1, 1.2, 1.15}
	swings := DetectSwings(swingBars(highs, lows), 2)

	var found bool
	for _, s := range swings {
		if s.Kind == models.SwingLow && s.Index == 2 && s.Price == 0.9 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected swing low at index 2, got %+v", swings)
	}
}

func TestSwingTiePrefersMostRecent(t *testing.T) {
	// equal highs at 2 and 4 within each other's lookback: only 4 qualifies
	highs := []float64{1.0, 1.1, 1.5, 1.2, 1.5, 1.1, 1.0}
	lows := []float64{0.9, 1.0, 1.3, 1.0, 1.3, 1.0, 0.9}
	swings := DetectSwings(swingBars(highs, lows), 2)

	for _, s := range swings {
		if s.Kind != models.SwingHigh {
			continue
		}
		if s.Index == 2 {
			t.Fatalf("earlier equal high must not qualify: %+v", swings)
		}
		if s.Index != 4 {
			t.Fatalf("unexpected swing high index %d", s.Index)
		}
	}
}

func TestDetectSwingsTooShort(t *testing.T) {
	highs := []float64{1.0, 1.1, 1.2}
	lows := []float64{0.9, 1.0, 1.1}
	if got := DetectSwings(swingBars(highs, lows), 3); got != nil {
		t.Fatalf("expected nil for short series, got %+v", got)
	}
}

func TestLastSwings(t *testing.T) {
	highs := []float64{1.0, 1.3, 1.0, 0.9, 1.0, 1.4, 1.0, 0.95, 1.0}
	lows := []float64{0.9, 1.1, 0.9, 0.7, 0.9, 1.2, 0.9, 0.75, 0.9}
	swings := DetectSwings(swingBars(highs, lows), 1)

	top := LastSwings(swings, models.SwingHigh, 2)
	if len(top) != 2 {
		t.Fatalf("want 2 swing highs, got %d", len(top))
	}
	if !(top[0].Index < top[1].Index) {
		t.Fatalf("expected oldest-first order: %+v", top)
	}
	if top[1].Price != 1.4 {
		t.Fatalf("latest swing high price = %v", top[1].Price)
	}
}
