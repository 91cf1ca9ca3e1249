package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	"StructPulse/internal/service/cache"
)

// MemoryStatsUseCase serves partition statistics and success rates to the API,
// with a short TTL cache in front of the store.
type MemoryStatsUseCase struct {
	store *memory.Store
	cache cache.BytesCache
	ttl   time.Duration
}

func NewMemoryStatsUseCase(store *memory.Store, c cache.BytesCache, ttl time.Duration) *MemoryStatsUseCase {
	return &MemoryStatsUseCase{store: store, cache: c, ttl: ttl}
}

// Stats returns the retained-record counters for one partition.
func (uc *MemoryStatsUseCase) Stats(ctx context.Context, symbol string, tf domrepo.Timeframe) (memory.PartitionStats, error) {
	if symbol == "" {
		return memory.PartitionStats{}, fmt.Errorf("symbol required")
	}

	key := "stats:" + symbol + ":" + string(tf)
	if uc.cache != nil {
		if b, ok, err := uc.cache.GetBytes(key); err == nil && ok {
			var st memory.PartitionStats
			if json.Unmarshal(b, &st) == nil {
				return st, nil
			}
		}
	}

	st := uc.store.Stats(ctx, symbol, tf)
	if uc.cache != nil {
		if b, err := json.Marshal(st); err == nil {
			_ = uc.cache.SetBytes(key, b, uc.ttl)
		}
	}
	return st, nil
}

// SuccessRateResult is the computed rate for one partition slice.
type SuccessRateResult struct {
	Symbol    string
	Timeframe string
	Direction string
	Rate      float64
	Samples   int
}

// SuccessRate computes the resolved success rate, optionally per direction.
func (uc *MemoryStatsUseCase) SuccessRate(ctx context.Context, symbol string, tf domrepo.Timeframe, direction string) (SuccessRateResult, error) {
	if symbol == "" {
		return SuccessRateResult{}, fmt.Errorf("symbol required")
	}
	var dir *models.Direction
	if direction != "" {
		d := models.Direction(direction)
		if d != models.Bullish && d != models.Bearish {
			return SuccessRateResult{}, fmt.Errorf("unknown direction %q", direction)
		}
		dir = &d
	}

	key := "rate:" + symbol + ":" + string(tf) + ":" + direction
	if uc.cache != nil {
		if b, ok, err := uc.cache.GetBytes(key); err == nil && ok {
			var res SuccessRateResult
			if json.Unmarshal(b, &res) == nil {
				return res, nil
			}
		}
	}

	rate, samples := uc.store.SuccessRate(ctx, symbol, tf, dir)
	res := SuccessRateResult{
		Symbol:    symbol,
		Timeframe: string(tf),
		Direction: direction,
		Rate:      rate,
		Samples:   samples,
	}
	if uc.cache != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = uc.cache.SetBytes(key, b, uc.ttl)
		}
	}
	return res, nil
}

// OutcomeUseCase applies outcome resolutions to the memory store and the
// persistence layer.
type OutcomeUseCase struct {
	store   *memory.Store
	persist domrepo.BreakEventStore
	metrics domrepo.Metrics
}

func NewOutcomeUseCase(store *memory.Store, persist domrepo.BreakEventStore, metrics domrepo.Metrics) *OutcomeUseCase {
	return &OutcomeUseCase{store: store, persist: persist, metrics: metrics}
}

// SetOutcome resolves one pending break event. Returns memory.ErrAlreadySet or
// memory.ErrNotFound unchanged so the handler can map them to status codes.
func (uc *OutcomeUseCase) SetOutcome(ctx context.Context, eventID string, outcome models.Outcome) error {
	if eventID == "" {
		return fmt.Errorf("event id required")
	}
	if !outcome.Terminal() {
		return fmt.Errorf("outcome must be success or failure, got %q", outcome)
	}
	if err := uc.store.SetOutcome(ctx, eventID, outcome); err != nil {
		return err
	}
	if uc.persist != nil {
		if err := uc.persist.SetOutcome(ctx, eventID, outcome); err != nil {
			uc.metrics.RecordError("store_set_outcome")
			return fmt.Errorf("persist outcome: %w", err)
		}
	}
	return nil
}
