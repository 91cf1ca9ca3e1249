package usecase

import (
	"context"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	"StructPulse/pkg/config"
)

type noopMetrics struct{}

func (noopMetrics) RecordSignal(pattern, symbol string)      {}
func (noopMetrics) RecordError(kind string)                  {}
func (noopMetrics) RecordStoreSize(symbol, tf string, n int) {}
func (noopMetrics) RecordEviction(symbol, tf string, n int)  {}
func (noopMetrics) RecordLatency(op string, seconds float64) {}

func newTestEnricher(store *memory.Store) *ConfidenceEnricher {
	calc := memory.NewBonusCalculator(store, 0.001, nil)
	return NewConfidenceEnricher(calc, store, nil, noopMetrics{}, nil)
}

func testEffective() config.EffectiveLimits {
	return config.EffectiveLimits{RetentionDays: 180, MaxRecords: 1000, WindowCap: 5000, FanOut: true}
}

func baseBOS() models.BaseSignal {
	return models.BaseSignal{
		Pattern:        models.PatternBOS,
		Symbol:         "EURUSD",
		Timeframe:      "M15",
		Direction:      models.Bullish,
		BreakLevel:     1.1050,
		BaseConfidence: 74,
		Timestamp:      time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
	}
}

func TestEnrichEmptyMemory(t *testing.T) {
	store := memory.NewStore(testEffective())
	enricher := newTestEnricher(store)

	sig, err := enricher.Enrich(context.Background(), baseBOS())
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if sig.HistoricalBonus != 0 || sig.SampleCount != 0 {
		t.Fatalf("expected neutral enrichment, got bonus %d samples %d", sig.HistoricalBonus, sig.SampleCount)
	}
	if sig.FinalConfidence != sig.BaseConfidence {
		t.Fatalf("expected final == base with empty memory, got %d vs %d", sig.FinalConfidence, sig.BaseConfidence)
	}
	if store.Size("EURUSD", domrepo.TFM15) != 1 {
		t.Fatal("expected a pending break event recorded")
	}
	snap := store.Snapshot("EURUSD", domrepo.TFM15)
	if snap[0].Outcome != models.OutcomePending {
		t.Fatalf("expected pending outcome, got %s", snap[0].Outcome)
	}
}

func TestEnrichWithHistory(t *testing.T) {
	store := memory.NewStore(testEffective())
	base := baseBOS()
	at := base.Timestamp.Add(-24 * time.Hour)
	for i := 0; i < 10; i++ {
		ev := &models.BreakEvent{
			Symbol:     base.Symbol,
			Timeframe:  base.Timeframe,
			Pattern:    models.PatternBOS,
			Direction:  models.Bullish,
			BreakLevel: 1.1050,
			DetectedAt: at.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
		outcome := models.OutcomeSuccess
		if i >= 8 {
			outcome = models.OutcomeFailure
		}
		if err := store.SetOutcome(context.Background(), ev.ID, outcome); err != nil {
			t.Fatalf("set outcome: %v", err)
		}
	}

	enricher := newTestEnricher(store)
	sig, err := enricher.Enrich(context.Background(), base)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if sig.SampleCount != 10 {
		t.Fatalf("expected 10 samples, got %d", sig.SampleCount)
	}
	if sig.HistoricalBonus != 12 {
		t.Fatalf("expected bonus 12 for 80%% rate, got %d", sig.HistoricalBonus)
	}
	if sig.FinalConfidence != 86 {
		t.Fatalf("expected final 86, got %d", sig.FinalConfidence)
	}
}

func TestEnrichClampsToHundred(t *testing.T) {
	store := memory.NewStore(testEffective())
	at := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		ev := &models.BreakEvent{
			Symbol:     "EURUSD",
			Timeframe:  "M15",
			Pattern:    models.PatternBOS,
			Direction:  models.Bullish,
			BreakLevel: 1.1050,
			DetectedAt: at.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := store.SetOutcome(context.Background(), ev.ID, models.OutcomeSuccess); err != nil {
			t.Fatalf("set outcome: %v", err)
		}
	}

	base := baseBOS()
	base.BaseConfidence = 95
	enricher := newTestEnricher(store)
	sig, err := enricher.Enrich(context.Background(), base)
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if sig.HistoricalBonus != 20 {
		t.Fatalf("expected max bonus 20, got %d", sig.HistoricalBonus)
	}
	if sig.FinalConfidence != 100 {
		t.Fatalf("expected final clamped to 100, got %d", sig.FinalConfidence)
	}
}

func TestEnrichSurvivesInsertFailure(t *testing.T) {
	store := memory.NewStore(testEffective())
	enricher := newTestEnricher(store)

	base := baseBOS()
	base.Symbol = "" // partition key missing, memory insert must fail
	sig, err := enricher.Enrich(context.Background(), base)
	if err != nil {
		t.Fatalf("expected signal despite insert failure, got error %v", err)
	}
	if sig == nil || sig.FinalConfidence != base.BaseConfidence {
		t.Fatalf("expected enriched signal with base confidence, got %+v", sig)
	}
}
