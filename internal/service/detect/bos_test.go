package detect

import (
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	"StructPulse/internal/market"
)

// BullishBOSFixture builds a bullish-biased series whose last close breaks a
// higher swing high at 1.1040. With lookback 2 the swing highs sit at index 2
// (1.1020) and index 7 (1.1040).
func BullishBOSFixture() []models.Candle {
	highs := []float64{1.1000, 1.1005, 1.1020, 1.1005, 1.1000, 1.1010, 1.1015, 1.1040, 1.1020, 1.1010, 1.1015, 1.1020, 1.1030, 1.1042, 1.1052}
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, len(highs))
	for i, h := range highs {
		bars[i] = models.Candle{
			Symbol:    "EURUSD",
			Timestamp: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:      h - 0.0015,
			High:      h,
			Low:       h - 0.0020,
			Close:     h - 0.0005,
			Volume:    1000,
		}
	}
	// breaking bar: strong body closing at 1.1050, above the 1.1040 swing high
	last := &bars[len(bars)-1]
	last.Open = 1.1030
	last.High = 1.1052
	last.Low = 1.1028
	last.Close = 1.1050
	return bars
}

func TestBOSBullishBreak(t *testing.T) {
	bars := BullishBOSFixture()
	swings := market.DetectSwings(bars, 2)

	d := NewBOSDetector(70)
	sig, ok := d.Detect(bars, swings)
	if !ok {
		t.Fatalf("expected BOS signal")
	}
	if sig.Direction != models.Bullish {
		t.Fatalf("direction = %s", sig.Direction)
	}
	if sig.BreakLevel != 1.1040 {
		t.Fatalf("break level = %v, want 1.1040", sig.BreakLevel)
	}
	if sig.BaseConfidence < 70 || sig.BaseConfidence > 78 {
		t.Fatalf("base confidence = %d, want within [70,78]", sig.BaseConfidence)
	}
	if sig.Pattern != models.PatternBOS {
		t.Fatalf("pattern = %s", sig.Pattern)
	}
}

func TestBOSBearishBreak(t *testing.T) {
	// mirror: lower swing lows, close breaks below the latest one
	lows := []float64{1.1050, 1.1045, 1.1030, 1.1045, 1.1050, 1.1040, 1.1035, 1.1010, 1.1030, 1.1040, 1.1035, 1.1030, 1.1020, 1.1008, 1.0998}
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, len(lows))
	for i, l := range lows {
		bars[i] = models.Candle{
			Symbol:    "EURUSD",
			Timestamp: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:      l + 0.0015,
			High:      l + 0.0020,
			Low:       l,
			Close:     l + 0.0005,
		}
	}
	last := &bars[len(bars)-1]
	last.Open = 1.1020
	last.High = 1.1022
	last.Low = 1.0998
	last.Close = 1.1000 // below the 1.1010 swing low

	swings := market.DetectSwings(bars, 2)
	d := NewBOSDetector(70)
	sig, ok := d.Detect(bars, swings)
	if !ok {
		t.Fatalf("expected bearish BOS")
	}
	if sig.Direction != models.Bearish {
		t.Fatalf("direction = %s", sig.Direction)
	}
	if sig.BreakLevel != 1.1010 {
		t.Fatalf("break level = %v", sig.BreakLevel)
	}
}

func TestBOSNoBreak(t *testing.T) {
	// flat series, no structure to break
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, 20)
	for i := range bars {
		bars[i] = models.Candle{
			Symbol:    "EURUSD",
			Timestamp: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:      1.1000,
			High:      1.1010,
			Low:       1.0990,
			Close:     1.1005,
		}
	}
	swings := market.DetectSwings(bars, 2)
	d := NewBOSDetector(70)
	if _, ok := d.Detect(bars, swings); ok {
		t.Fatalf("flat series must not produce a BOS")
	}
}
