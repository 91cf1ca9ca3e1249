package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/pkg/config"
)

func testLimits(maxRecords, retentionDays int) config.EffectiveLimits {
	return config.EffectiveLimits{
		RetentionDays: retentionDays,
		MaxRecords:    maxRecords,
		WindowCap:     5000,
		FanOut:        true,
	}
}

func makeEvent(symbol string, tf domrepo.Timeframe, level float64, at time.Time) *models.BreakEvent {
	return &models.BreakEvent{
		Symbol:     symbol,
		Timeframe:  string(tf),
		Pattern:    models.PatternBOS,
		Direction:  models.Bullish,
		BreakLevel: level,
		DetectedAt: at,
	}
}

func TestInsertAssignsIDAndPending(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, time.Now())

	if err := store.Insert(context.Background(), ev); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ev.ID == "" {
		t.Fatal("expected Insert to assign an event ID")
	}
	if ev.Outcome != models.OutcomePending {
		t.Fatalf("expected pending outcome, got %s", ev.Outcome)
	}
	if got := store.Size("EURUSD", domrepo.TFM15); got != 1 {
		t.Fatalf("expected size 1, got %d", got)
	}
}

func TestCapKeepsMostRecent(t *testing.T) {
	store := NewStore(testLimits(200, 180))
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 250; i++ {
		ev := makeEvent("EURUSD", domrepo.TFM15, 1.1000, base.Add(time.Duration(i)*time.Minute))
		ev.ID = fmt.Sprintf("ev-%03d", i)
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	if got := store.Size("EURUSD", domrepo.TFM15); got != 200 {
		t.Fatalf("expected exactly 200 retained records, got %d", got)
	}
	snap := store.Snapshot("EURUSD", domrepo.TFM15)
	if snap[0].ID != "ev-050" {
		t.Fatalf("expected oldest retained record ev-050, got %s", snap[0].ID)
	}
	if snap[len(snap)-1].ID != "ev-249" {
		t.Fatalf("expected newest retained record ev-249, got %s", snap[len(snap)-1].ID)
	}
}

func TestRetentionEvictsOldRecords(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewStore(testLimits(1000, 30), WithClock(func() time.Time { return now }))

	stale := makeEvent("EURUSD", domrepo.TFM15, 1.1000, now.AddDate(0, 0, -31))
	fresh := makeEvent("EURUSD", domrepo.TFM15, 1.1000, now.AddDate(0, 0, -5))
	if err := store.Insert(context.Background(), stale); err != nil {
		t.Fatalf("insert stale: %v", err)
	}
	if err := store.Insert(context.Background(), fresh); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	matched, err := store.QueryNear(context.Background(), "EURUSD", domrepo.TFM15, models.Bullish, 1.1000, 0.001)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected stale record evicted, got %d matches", len(matched))
	}
	if matched[0].ID != fresh.ID {
		t.Fatalf("expected fresh record retained, got %s", matched[0].ID)
	}
}

func TestQueryNearFilters(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	now := time.Now()

	near := makeEvent("EURUSD", domrepo.TFM15, 1.1042, now)
	far := makeEvent("EURUSD", domrepo.TFM15, 1.1090, now.Add(time.Minute))
	opposite := makeEvent("EURUSD", domrepo.TFM15, 1.1041, now.Add(2*time.Minute))
	opposite.Direction = models.Bearish
	for _, ev := range []*models.BreakEvent{near, far, opposite} {
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	matched, err := store.QueryNear(context.Background(), "EURUSD", domrepo.TFM15, models.Bullish, 1.1040, 0.001)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matched) != 1 || matched[0].ID != near.ID {
		t.Fatalf("expected only the near bullish record, got %+v", matched)
	}
}

func TestSetOutcomeTransitions(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, time.Now())
	if err := store.Insert(context.Background(), ev); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.SetOutcome(context.Background(), ev.ID, models.OutcomeSuccess); err != nil {
		t.Fatalf("set outcome: %v", err)
	}

	err := store.SetOutcome(context.Background(), ev.ID, models.OutcomeFailure)
	if !errors.Is(err, ErrAlreadySet) {
		t.Fatalf("expected ErrAlreadySet on second transition, got %v", err)
	}

	snap := store.Snapshot("EURUSD", domrepo.TFM15)
	if snap[0].Outcome != models.OutcomeSuccess {
		t.Fatalf("expected success preserved, got %s", snap[0].Outcome)
	}
	if snap[0].OutcomeSetAt == nil {
		t.Fatal("expected OutcomeSetAt to be stamped")
	}
}

func TestSetOutcomeUnknownID(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	err := store.SetOutcome(context.Background(), "missing", models.OutcomeSuccess)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetOutcomeRejectsPending(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, time.Now())
	if err := store.Insert(context.Background(), ev); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.SetOutcome(context.Background(), ev.ID, models.OutcomePending); err == nil {
		t.Fatal("expected non-terminal outcome to be rejected")
	}
}

func TestStatsCounts(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	now := time.Now()
	for i, outcome := range []models.Outcome{
		models.OutcomeSuccess, models.OutcomeSuccess, models.OutcomeFailure, models.OutcomePending,
	} {
		ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, now.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if outcome.Terminal() {
			if err := store.SetOutcome(context.Background(), ev.ID, outcome); err != nil {
				t.Fatalf("set outcome: %v", err)
			}
		}
	}

	st := store.Stats(context.Background(), "EURUSD", domrepo.TFM15)
	if st.Total != 4 || st.Successes != 2 || st.Failures != 1 || st.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	want := 2.0 / 3.0
	if st.SuccessRate < want-1e-9 || st.SuccessRate > want+1e-9 {
		t.Fatalf("expected success rate %.4f, got %.4f", want, st.SuccessRate)
	}
}

func TestReplacePartitionAppliesLimits(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewStore(testLimits(2, 30), WithClock(func() time.Time { return now }))

	events := []models.BreakEvent{
		*makeEvent("EURUSD", domrepo.TFM15, 1.1000, now.AddDate(0, 0, -40)),
		*makeEvent("EURUSD", domrepo.TFM15, 1.1010, now.AddDate(0, 0, -3)),
		*makeEvent("EURUSD", domrepo.TFM15, 1.1020, now.AddDate(0, 0, -2)),
		*makeEvent("EURUSD", domrepo.TFM15, 1.1030, now.AddDate(0, 0, -1)),
	}
	for i := range events {
		events[i].ID = fmt.Sprintf("seed-%d", i)
	}
	store.ReplacePartition("EURUSD", domrepo.TFM15, events)

	snap := store.Snapshot("EURUSD", domrepo.TFM15)
	if len(snap) != 2 {
		t.Fatalf("expected 2 retained records after seeding, got %d", len(snap))
	}
	if snap[0].ID != "seed-2" || snap[1].ID != "seed-3" {
		t.Fatalf("expected the two newest records, got %s and %s", snap[0].ID, snap[1].ID)
	}
}

func TestSameBarEventsGetDistinctIDs(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	at := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	bos := makeEvent("EURUSD", domrepo.TFM15, 1.1050, at)
	fvg := makeEvent("EURUSD", domrepo.TFM15, 1.1048, at)
	fvg.Pattern = models.PatternFVG

	if err := store.Insert(context.Background(), bos); err != nil {
		t.Fatalf("insert bos: %v", err)
	}
	if err := store.Insert(context.Background(), fvg); err != nil {
		t.Fatalf("insert fvg: %v", err)
	}
	if bos.ID == fvg.ID {
		t.Fatalf("events from the same bar share ID %s", bos.ID)
	}

	if err := store.SetOutcome(context.Background(), bos.ID, models.OutcomeSuccess); err != nil {
		t.Fatalf("set bos outcome: %v", err)
	}
	if err := store.SetOutcome(context.Background(), fvg.ID, models.OutcomeFailure); err != nil {
		t.Fatalf("set fvg outcome after resolving bos: %v", err)
	}
}

func TestReadPathsDoNotCreatePartitions(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, time.Now())
	if err := store.Insert(context.Background(), ev); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := store.QueryNear(context.Background(), "GHOST", domrepo.TFH1, models.Bullish, 1.0, 0.01); err != nil {
		t.Fatalf("query near: %v", err)
	}
	if st := store.Stats(context.Background(), "GHOST", domrepo.TFH1); st.Total != 0 || st.SuccessRate != 0.5 {
		t.Fatalf("unexpected stats for unknown partition: %+v", st)
	}
	if rate, n := store.SuccessRate(context.Background(), "GHOST", domrepo.TFH1, nil); rate != 0.5 || n != 0 {
		t.Fatalf("expected neutral rate for unknown partition, got %.2f with %d resolved", rate, n)
	}
	if got := store.Size("GHOST", domrepo.TFH1); got != 0 {
		t.Fatalf("expected size 0 for unknown partition, got %d", got)
	}
	if snap := store.Snapshot("GHOST", domrepo.TFH1); snap != nil {
		t.Fatalf("expected nil snapshot for unknown partition, got %d records", len(snap))
	}

	store.mu.RLock()
	parts := len(store.parts)
	store.mu.RUnlock()
	if parts != 1 {
		t.Fatalf("expected reads to leave 1 partition, got %d", parts)
	}
}
