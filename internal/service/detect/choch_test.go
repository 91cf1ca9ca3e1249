package detect

import (
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	"StructPulse/internal/market"
)

// downtrendReversalFixture: descending swing highs (1.1080 -> 1.1060) and
// descending swing lows (1.1020 -> 1.1010), then a close reclaiming 1.1060.
func downtrendReversalFixture() []models.Candle {
	highs := []float64{1.1050, 1.1060, 1.1080, 1.1060, 1.1040, 1.1050, 1.1060, 1.1040, 1.1030, 1.1035, 1.1040, 1.1055, 1.1070}
	lows := []float64{1.1030, 1.1040, 1.1060, 1.1040, 1.1020, 1.1030, 1.1040, 1.1020, 1.1010, 1.1015, 1.1020, 1.1030, 1.1040}
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, len(highs))
	for i := range highs {
		bars[i] = models.Candle{
			Symbol:    "EURUSD",
			Timestamp: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:      lows[i] + 0.0005,
			High:      highs[i],
			Low:       lows[i],
			Close:     highs[i] - 0.0005,
		}
	}
	last := &bars[len(bars)-1]
	last.Open = 1.1045
	last.Close = 1.1065 // above the 1.1060 swing high, against the downtrend
	return bars
}

func TestCHoCHBullishReversal(t *testing.T) {
	bars := downtrendReversalFixture()
	swings := market.DetectSwings(bars, 2)

	d := NewCHoCHDetector(68)
	sig, ok := d.Detect(bars, swings)
	if !ok {
		t.Fatalf("expected CHoCH signal")
	}
	if sig.Direction != models.Bullish {
		t.Fatalf("direction = %s", sig.Direction)
	}
	if sig.BreakLevel != 1.1060 {
		t.Fatalf("break level = %v", sig.BreakLevel)
	}
	if sig.Pattern != models.PatternCHoCH {
		t.Fatalf("pattern = %s", sig.Pattern)
	}
}

func TestCHoCHNoSignalWithTrend(t *testing.T) {
	// same structure but price keeps falling: a with-trend move is not a CHoCH
	bars := downtrendReversalFixture()
	last := &bars[len(bars)-1]
	last.Open = 1.1020
	last.High = 1.1022
	last.Low = 1.1000
	last.Close = 1.1005

	swings := market.DetectSwings(bars, 2)
	d := NewCHoCHDetector(68)
	if _, ok := d.Detect(bars, swings); ok {
		t.Fatalf("with-trend continuation must not produce a CHoCH")
	}
}
