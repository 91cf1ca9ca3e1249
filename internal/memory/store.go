package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/pkg/config"
	applogger "StructPulse/pkg/logger"
)

var (
	// ErrAlreadySet is returned when an outcome transition is attempted on a
	// record that already reached a terminal outcome.
	ErrAlreadySet = errors.New("outcome already set")
	// ErrNotFound is returned for unknown or already-evicted event IDs.
	ErrNotFound = errors.New("break event not found")
)

// partition holds break events for one (symbol, timeframe) pair, oldest first.
// Writers within a partition are serialized by its mutex; partitions never
// lock each other.
type partition struct {
	mu     sync.RWMutex
	events []models.BreakEvent
	byID   map[string]int
}

// Store is the retention-bounded historical memory of break events,
// partitioned by (symbol, timeframe). Budgets come from config.EffectiveLimits;
// the store never decides its own.
type Store struct {
	mu      sync.RWMutex // guards the partition map only
	parts   map[string]*partition
	limits  config.EffectiveLimits
	now     func() time.Time
	l       *applogger.Logger
	metrics domrepo.Metrics
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) StoreOption {
	return func(s *Store) { s.l = l }
}

// WithMetrics injects a metrics recorder.
func WithMetrics(m domrepo.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty store with the given effective limits.
func NewStore(limits config.EffectiveLimits, opts ...StoreOption) *Store {
	s := &Store{
		parts:  make(map[string]*partition),
		limits: limits,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func partitionKey(symbol string, tf domrepo.Timeframe) string {
	return symbol + "|" + string(tf)
}

func (s *Store) partition(symbol string, tf domrepo.Timeframe) *partition {
	key := partitionKey(symbol, tf)
	s.mu.RLock()
	p, ok := s.parts[key]
	s.mu.RUnlock()
	if ok {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.parts[key]; ok {
		return p
	}
	p = &partition{byID: make(map[string]int)}
	s.parts[key] = p
	return p
}

// lookup returns an existing partition without creating one. Read paths use
// this so arbitrary queried keys never grow the partition map.
func (s *Store) lookup(symbol string, tf domrepo.Timeframe) (*partition, bool) {
	s.mu.RLock()
	p, ok := s.parts[partitionKey(symbol, tf)]
	s.mu.RUnlock()
	return p, ok
}

// Insert evicts stale and excess records, then appends ev. A missing ID or
// outcome is filled in (pending).
func (s *Store) Insert(ctx context.Context, ev *models.BreakEvent) error {
	if ev == nil {
		return fmt.Errorf("break event is nil")
	}
	if ev.Symbol == "" || ev.Timeframe == "" {
		return fmt.Errorf("break event missing partition key: %+v", ev)
	}
	if ev.Outcome == "" {
		ev.Outcome = models.OutcomePending
	}
	if !models.IsValidOutcome(ev.Outcome) {
		return fmt.Errorf("unknown outcome %q", ev.Outcome)
	}
	if ev.ID == "" {
		ev.ID = models.NewEventID(ev.Symbol, ev.Timeframe, ev.Pattern, ev.Direction, ev.DetectedAt)
	}

	p := s.partition(ev.Symbol, domrepo.Timeframe(ev.Timeframe))
	p.mu.Lock()
	defer p.mu.Unlock()

	evicted := s.evictLocked(p)
	// make room so the cap holds after append
	if excess := len(p.events) - s.limits.MaxRecords + 1; excess > 0 {
		p.events = p.events[excess:]
		evicted += excess
	}
	p.events = append(p.events, *ev)
	s.reindexLocked(p)
	s.observe(ev.Symbol, ev.Timeframe, len(p.events), evicted)
	return nil
}

// QueryNear returns all retained records within tolerance of level matching
// symbol, timeframe, and direction, oldest first.
func (s *Store) QueryNear(ctx context.Context, symbol string, tf domrepo.Timeframe, dir models.Direction, level, tolerance float64) ([]models.BreakEvent, error) {
	p, ok := s.lookup(symbol, tf)
	if !ok {
		return nil, nil
	}
	p.mu.Lock()
	evicted := s.evictLocked(p)
	if evicted > 0 {
		s.reindexLocked(p)
	}
	out := make([]models.BreakEvent, 0, 8)
	for _, ev := range p.events {
		if ev.Direction != dir {
			continue
		}
		d := ev.BreakLevel - level
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			out = append(out, ev)
		}
	}
	size := len(p.events)
	p.mu.Unlock()
	s.observe(symbol, string(tf), size, evicted)
	return out, nil
}

// SetOutcome performs the single pending -> terminal transition for one event.
func (s *Store) SetOutcome(ctx context.Context, eventID string, outcome models.Outcome) error {
	if !outcome.Terminal() {
		return fmt.Errorf("outcome %q is not terminal", outcome)
	}

	s.mu.RLock()
	parts := make([]*partition, 0, len(s.parts))
	for _, p := range s.parts {
		parts = append(parts, p)
	}
	s.mu.RUnlock()

	for _, p := range parts {
		p.mu.Lock()
		if s.evictLocked(p) > 0 {
			s.reindexLocked(p)
		}
		i, ok := p.byID[eventID]
		if !ok {
			p.mu.Unlock()
			continue
		}
		if p.events[i].Outcome != models.OutcomePending {
			p.mu.Unlock()
			return fmt.Errorf("%w: event %s is %s", ErrAlreadySet, eventID, p.events[i].Outcome)
		}
		ts := s.now()
		p.events[i].Outcome = outcome
		p.events[i].OutcomeSetAt = &ts
		p.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, eventID)
}

// SuccessRate returns the resolved success ratio for a partition, optionally
// restricted to one direction. Neutral 0.5 with zero resolved samples.
func (s *Store) SuccessRate(ctx context.Context, symbol string, tf domrepo.Timeframe, dir *models.Direction) (float64, int) {
	p, ok := s.lookup(symbol, tf)
	if !ok {
		return 0.5, 0
	}
	p.mu.Lock()
	if s.evictLocked(p) > 0 {
		s.reindexLocked(p)
	}
	rate, resolved := SuccessRate(p.events, dir)
	p.mu.Unlock()
	return rate, resolved
}

// PartitionStats summarizes one partition for dashboards.
type PartitionStats struct {
	Symbol      string
	Timeframe   string
	Total       int
	Pending     int
	Successes   int
	Failures    int
	SuccessRate float64
}

// Stats returns counters for a partition after lazy eviction.
func (s *Store) Stats(ctx context.Context, symbol string, tf domrepo.Timeframe) PartitionStats {
	p, ok := s.lookup(symbol, tf)
	if !ok {
		return PartitionStats{Symbol: symbol, Timeframe: string(tf), SuccessRate: 0.5}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.evictLocked(p) > 0 {
		s.reindexLocked(p)
	}

	st := PartitionStats{Symbol: symbol, Timeframe: string(tf), Total: len(p.events)}
	for _, ev := range p.events {
		switch ev.Outcome {
		case models.OutcomeSuccess:
			st.Successes++
		case models.OutcomeFailure:
			st.Failures++
		default:
			st.Pending++
		}
	}
	rate, _ := SuccessRate(p.events, nil)
	st.SuccessRate = rate
	return st
}

// Size returns the retained record count of a partition without eviction.
func (s *Store) Size(symbol string, tf domrepo.Timeframe) int {
	p, ok := s.lookup(symbol, tf)
	if !ok {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.events)
}

// Snapshot copies a partition's retained events, oldest first.
func (s *Store) Snapshot(symbol string, tf domrepo.Timeframe) []models.BreakEvent {
	p, ok := s.lookup(symbol, tf)
	if !ok {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.BreakEvent, len(p.events))
	copy(out, p.events)
	return out
}

// ReplacePartition seeds a partition from persisted state (oldest first),
// applying retention and cap rules before installing.
func (s *Store) ReplacePartition(symbol string, tf domrepo.Timeframe, events []models.BreakEvent) {
	p := s.partition(symbol, tf)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events[:0:0], events...)
	s.evictLocked(p)
	if excess := len(p.events) - s.limits.MaxRecords; excess > 0 {
		p.events = p.events[excess:]
	}
	s.reindexLocked(p)
}

// evictLocked drops records older than the retention horizon, oldest first.
// Caller holds p.mu. Returns the number of dropped records; the caller
// reindexes when non-zero.
func (s *Store) evictLocked(p *partition) int {
	cutoff := s.now().Add(-s.limits.Retention())
	n := 0
	for n < len(p.events) && p.events[n].DetectedAt.Before(cutoff) {
		n++
	}
	if n > 0 {
		p.events = p.events[n:]
	}
	return n
}

func (s *Store) reindexLocked(p *partition) {
	if p.byID == nil || len(p.byID) > 0 {
		p.byID = make(map[string]int, len(p.events))
	}
	for i, ev := range p.events {
		p.byID[ev.ID] = i
	}
}

func (s *Store) observe(symbol, tf string, size, evicted int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStoreSize(symbol, tf, size)
	if evicted > 0 {
		s.metrics.RecordEviction(symbol, tf, evicted)
	}
}
