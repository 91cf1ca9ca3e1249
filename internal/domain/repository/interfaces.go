package repository

import (
	"context"

	"StructPulse/internal/domain/models"
)

// CandleStream is a live market-data connection delivering closed candles.
type CandleStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher delivers enriched pattern signals to external consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.PatternSignal) error
	Close() error
}

// BreakEventStore is the optional persistence contract for restart continuity.
// Implementations must round-trip all BreakEvent fields losslessly and return
// partitions in insertion order (oldest first) so eviction stays correct.
type BreakEventStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Append(ctx context.Context, ev *models.BreakEvent) error
	LoadPartition(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.BreakEvent, error)
	SetOutcome(ctx context.Context, eventID string, outcome models.Outcome) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records engine observability events.
type Metrics interface {
	RecordSignal(pattern, symbol string)
	RecordError(kind string)
	RecordStoreSize(symbol, tf string, n int)
	RecordEviction(symbol, tf string, n int)
	RecordLatency(op string, seconds float64)
}
