package usecase

import (
	"context"
	"fmt"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	applogger "StructPulse/pkg/logger"
)

// ConfidenceEnricher turns raw detector output into emitted signals by folding
// in the historical bonus and recording a pending break event for later
// resolution.
type ConfidenceEnricher struct {
	bonus   *memory.BonusCalculator
	store   *memory.Store
	persist domrepo.BreakEventStore
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

// NewConfidenceEnricher creates an enricher. persist may be nil when restart
// continuity is disabled.
func NewConfidenceEnricher(
	bonus *memory.BonusCalculator,
	store *memory.Store,
	persist domrepo.BreakEventStore,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *ConfidenceEnricher {
	return &ConfidenceEnricher{
		bonus:   bonus,
		store:   store,
		persist: persist,
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
}

// Enrich computes the final confidence for base and registers the break as a
// pending event. A memory insert failure never drops the signal; it is logged
// and the enriched signal is returned anyway.
func (e *ConfidenceEnricher) Enrich(ctx context.Context, base models.BaseSignal) (*models.PatternSignal, error) {
	start := e.now()
	tf := domrepo.Timeframe(base.Timeframe)

	bonus, samples, err := e.bonus.Compute(ctx, base.Symbol, tf, base.Direction, base.BreakLevel)
	if err != nil {
		e.metrics.RecordError("enrich_bonus")
		return nil, fmt.Errorf("compute bonus: %w", err)
	}

	final := base.BaseConfidence + bonus
	if final > 100 {
		final = 100
	}
	if final < 0 {
		final = 0
	}

	sig := &models.PatternSignal{
		Pattern:         base.Pattern,
		Symbol:          base.Symbol,
		Timeframe:       base.Timeframe,
		Direction:       base.Direction,
		Timestamp:       base.Timestamp,
		BreakLevel:      base.BreakLevel,
		BaseConfidence:  base.BaseConfidence,
		HistoricalBonus: bonus,
		SampleCount:     samples,
		FinalConfidence: final,
		Narrative:       buildNarrative(base, bonus, samples, final),
	}

	ev := &models.BreakEvent{
		Symbol:     base.Symbol,
		Timeframe:  base.Timeframe,
		Pattern:    base.Pattern,
		Direction:  base.Direction,
		BreakLevel: base.BreakLevel,
		DetectedAt: base.Timestamp,
		Outcome:    models.OutcomePending,
	}
	if err := e.store.Insert(ctx, ev); err != nil {
		e.metrics.RecordError("memory_insert")
		e.warn("memory insert failed, signal emitted anyway", err, base)
	} else if e.persist != nil {
		if err := e.persist.Append(ctx, ev); err != nil {
			e.metrics.RecordError("store_append")
			e.warn("break event persistence failed", err, base)
		}
	}

	e.metrics.RecordSignal(string(base.Pattern), base.Symbol)
	e.metrics.RecordLatency("enrich", e.now().Sub(start).Seconds())
	return sig, nil
}

func (e *ConfidenceEnricher) warn(msg string, err error, base models.BaseSignal) {
	if e.l == nil {
		return
	}
	e.l.Warn(msg,
		applogger.Error(err),
		applogger.String("pattern", string(base.Pattern)),
		applogger.String("symbol", base.Symbol),
		applogger.String("timeframe", base.Timeframe),
		applogger.Float64("level", base.BreakLevel),
	)
}

func buildNarrative(base models.BaseSignal, bonus, samples, final int) string {
	if samples == 0 {
		return fmt.Sprintf("%s %s on %s %s at %.5f, confidence %d (no nearby history)",
			base.Pattern, base.Direction, base.Symbol, base.Timeframe, base.BreakLevel, final)
	}
	return fmt.Sprintf("%s %s on %s %s at %.5f, confidence %d (base %d, history %+d over %d nearby breaks)",
		base.Pattern, base.Direction, base.Symbol, base.Timeframe, base.BreakLevel, final,
		base.BaseConfidence, bonus, samples)
}
