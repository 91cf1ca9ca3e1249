package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	pkgch "StructPulse/pkg/clickhouse"
	applogger "StructPulse/pkg/logger"
)

const breakEventsTable = "break_events"

// ClickHouseBreakStore persists break events for restart continuity.
// Partitions load oldest first so the in-memory eviction order survives a
// restart unchanged.
type ClickHouseBreakStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewClickHouseBreakStore(ch *pkgch.Client) domrepo.BreakEventStore {
	return &ClickHouseBreakStore{client: ch, db: ch.DB(), table: breakEventsTable}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBreakStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the break_events table exists. Idempotent.
func (s *ClickHouseBreakStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id String,
            symbol LowCardinality(String),
            timeframe LowCardinality(String),
            pattern LowCardinality(String),
            direction LowCardinality(String),
            break_level Float64,
            detected_at DateTime64(9, 'UTC'),
            outcome LowCardinality(String),
            outcome_set_at Nullable(DateTime64(9, 'UTC'))
        ) ENGINE = ReplacingMergeTree(detected_at)
        ORDER BY (symbol, timeframe, detected_at, id)
    `, s.table)
	if err := s.client.InitSchema(ctx, []string{stmt}); err != nil {
		return fmt.Errorf("init break events schema: %w", err)
	}
	return nil
}

func (s *ClickHouseBreakStore) Append(ctx context.Context, ev *models.BreakEvent) error {
	if ev == nil {
		return fmt.Errorf("break event is nil")
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (id, symbol, timeframe, pattern, direction, break_level, detected_at, outcome, outcome_set_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	var setAt interface{}
	if ev.OutcomeSetAt != nil {
		setAt = *ev.OutcomeSetAt
	}
	_, err := s.db.ExecContext(ctx, q,
		ev.ID,
		ev.Symbol,
		ev.Timeframe,
		string(ev.Pattern),
		string(ev.Direction),
		ev.BreakLevel,
		ev.DetectedAt,
		string(ev.Outcome),
		setAt,
	)
	if err != nil {
		return fmt.Errorf("append break event: %w", err)
	}
	return nil
}

// LoadPartition returns the newest limit events of one partition in insertion
// order, oldest first.
func (s *ClickHouseBreakStore) LoadPartition(ctx context.Context, symbol string, tf domrepo.Timeframe, limit int) ([]models.BreakEvent, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 1000
	}
	q := fmt.Sprintf(`
        SELECT id, symbol, timeframe, pattern, direction, break_level, detected_at, outcome, outcome_set_at
        FROM %s FINAL
        WHERE symbol = ? AND timeframe = ?
        ORDER BY detected_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_partition query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load partition: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.BreakEvent, 0, limit)
	for rows.Next() {
		var (
			ev       models.BreakEvent
			pattern  string
			dir      string
			outcome  string
			outcomeT sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.Symbol, &ev.Timeframe, &pattern, &dir, &ev.BreakLevel, &ev.DetectedAt, &outcome, &outcomeT); err != nil {
			return nil, fmt.Errorf("scan break event: %w", err)
		}
		ev.Pattern = models.PatternType(pattern)
		ev.Direction = models.Direction(dir)
		ev.Outcome = models.Outcome(outcome)
		if outcomeT.Valid {
			t := outcomeT.Time
			ev.OutcomeSetAt = &t
		}
		tmp = append(tmp, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to oldest first
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse load_partition ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

// SetOutcome records a resolution as a lightweight mutation. The pending
// guard keeps the transition single-shot even across replays.
func (s *ClickHouseBreakStore) SetOutcome(ctx context.Context, eventID string, outcome models.Outcome) error {
	q := fmt.Sprintf(`ALTER TABLE %s UPDATE outcome = ?, outcome_set_at = now64(9) WHERE id = ? AND outcome = 'pending'`, s.table)
	if _, err := s.db.ExecContext(ctx, q, string(outcome), eventID); err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	return nil
}

func (s *ClickHouseBreakStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBreakStore) Close() error {
	return nil // pool owned by pkg client
}
