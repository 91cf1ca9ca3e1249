package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	"StructPulse/internal/service/detect"
	"StructPulse/pkg/config"
)

type capturePublisher struct {
	mu   sync.Mutex
	sigs []*models.PatternSignal
}

func (p *capturePublisher) Publish(ctx context.Context, s *models.PatternSignal) error {
	p.mu.Lock()
	p.sigs = append(p.sigs, s)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sigs)
}

func scannerFixture(t *testing.T) (*Scanner, *capturePublisher, *SignalLog) {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\ndetect:\n  swing_lookback: 2\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	reg := detect.NewRegistry(cfg)
	if err := reg.VerifyWired(); err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := memory.NewStore(cfg.Effective())
	enricher := newTestEnricher(store)
	pub := &capturePublisher{}
	log := NewSignalLog(16)
	s := NewScanner(cfg, reg.All(), enricher, pub, log, noopMetrics{}, nil)
	return s, pub, log
}

// breakoutBars builds a series with a higher swing high at 1.1040 broken by
// the final close at 1.1050.
func breakoutBars(start time.Time) []models.Candle {
	quiet := func(i int, high float64) models.Candle {
		return models.Candle{
			Symbol:    "EURUSD",
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      high - 0.0012,
			High:      high,
			Low:       high - 0.0020,
			Close:     high - 0.0010,
			Volume:    100,
		}
	}
	highs := []float64{1.1000, 1.1005, 1.1020, 1.1004, 1.1002, 1.1006, 1.1008, 1.1040, 1.1004, 1.1006, 1.1008}
	bars := make([]models.Candle, 0, len(highs)+1)
	for i, h := range highs {
		bars = append(bars, quiet(i, h))
	}
	bars = append(bars, models.Candle{
		Symbol:    "EURUSD",
		Timestamp: start.Add(time.Duration(len(highs)) * 15 * time.Minute),
		Open:      1.1030,
		High:      1.1052,
		Low:       1.1028,
		Close:     1.1050,
		Volume:    400,
	})
	return bars
}

func TestScannerEmitsOnBreakout(t *testing.T) {
	s, pub, log := scannerFixture(t)
	start := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	bars := breakoutBars(start)
	for i := range bars {
		s.OnCandle(context.Background(), domrepo.TFM15, &bars[i])
	}

	if pub.count() == 0 {
		t.Fatal("expected at least one published signal on breakout")
	}
	found := false
	for _, sig := range log.Latest(0, "EURUSD", models.PatternBOS) {
		if sig.Direction != models.Bullish {
			t.Fatalf("expected bullish BOS, got %s", sig.Direction)
		}
		if sig.BreakLevel != 1.1040 {
			t.Fatalf("expected break level 1.1040, got %.5f", sig.BreakLevel)
		}
		if sig.FinalConfidence < 0 || sig.FinalConfidence > 100 {
			t.Fatalf("final confidence out of range: %d", sig.FinalConfidence)
		}
		found = true
	}
	if !found {
		t.Fatal("expected a BOS signal in the log")
	}
}

func TestScannerSkipsOutOfOrder(t *testing.T) {
	s, _, _ := scannerFixture(t)
	start := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	bars := breakoutBars(start)

	a, b := bars[0], bars[1]
	s.OnCandle(context.Background(), domrepo.TFM15, &b)
	s.OnCandle(context.Background(), domrepo.TFM15, &a) // earlier timestamp, dropped
	dup := b
	s.OnCandle(context.Background(), domrepo.TFM15, &dup) // duplicate, dropped

	if got := s.WindowSize("EURUSD", domrepo.TFM15); got != 1 {
		t.Fatalf("expected 1 retained bar after out-of-order drops, got %d", got)
	}
}

func TestScannerDedupesRepeatedBreak(t *testing.T) {
	s, pub, _ := scannerFixture(t)
	start := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	bars := breakoutBars(start)

	for i := range bars {
		s.OnCandle(context.Background(), domrepo.TFM15, &bars[i])
	}
	first := pub.count()
	if first == 0 {
		t.Fatal("expected signals from first breakout")
	}

	// one more close above the same level must not re-emit the same break
	again := bars[len(bars)-1]
	again.Timestamp = again.Timestamp.Add(15 * time.Minute)
	s.OnCandle(context.Background(), domrepo.TFM15, &again)

	bos := 0
	pub.mu.Lock()
	for _, sig := range pub.sigs {
		if sig.Pattern == models.PatternBOS {
			bos++
		}
	}
	pub.mu.Unlock()
	if bos != 1 {
		t.Fatalf("expected a single BOS emission for one break level, got %d", bos)
	}
}

func TestSignalLogRing(t *testing.T) {
	log := NewSignalLog(3)
	for i := 0; i < 5; i++ {
		log.Append(&models.PatternSignal{
			Pattern:         models.PatternBOS,
			Symbol:          "EURUSD",
			FinalConfidence: i,
		})
	}
	if log.Size() != 3 {
		t.Fatalf("expected ring capped at 3, got %d", log.Size())
	}
	latest := log.Latest(2, "", "")
	if len(latest) != 2 {
		t.Fatalf("expected 2 results, got %d", len(latest))
	}
	if latest[0].FinalConfidence != 4 || latest[1].FinalConfidence != 3 {
		t.Fatalf("expected newest first, got %d then %d", latest[0].FinalConfidence, latest[1].FinalConfidence)
	}
}
