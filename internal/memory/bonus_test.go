package memory

import (
	"context"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
)

func seedResolved(t *testing.T, store *Store, level float64, successes, failures int) {
	t.Helper()
	now := time.Now()
	n := 0
	add := func(outcome models.Outcome) {
		ev := makeEvent("EURUSD", domrepo.TFM15, level, now.Add(time.Duration(n)*time.Minute))
		n++
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := store.SetOutcome(context.Background(), ev.ID, outcome); err != nil {
			t.Fatalf("set outcome: %v", err)
		}
	}
	for i := 0; i < successes; i++ {
		add(models.OutcomeSuccess)
	}
	for i := 0; i < failures; i++ {
		add(models.OutcomeFailure)
	}
}

func TestBonusEightOfTen(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	seedResolved(t, store, 1.1040, 8, 2)
	calc := NewBonusCalculator(store, 0.001, nil)

	bonus, samples, err := calc.Compute(context.Background(), "EURUSD", domrepo.TFM15, models.Bullish, 1.1042)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if samples != 10 {
		t.Fatalf("expected 10 samples, got %d", samples)
	}
	if bonus != 12 {
		t.Fatalf("expected bonus 12 for 80%% rate, got %d", bonus)
	}
}

func TestBonusZeroSamples(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	calc := NewBonusCalculator(store, 0.001, nil)

	bonus, samples, err := calc.Compute(context.Background(), "EURUSD", domrepo.TFM15, models.Bullish, 1.1040)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if bonus != 0 || samples != 0 {
		t.Fatalf("expected (0, 0) with empty memory, got (%d, %d)", bonus, samples)
	}
}

func TestBonusPendingOnlyIsNeutral(t *testing.T) {
	store := NewStore(testLimits(100, 180))
	for i := 0; i < 3; i++ {
		ev := makeEvent("EURUSD", domrepo.TFM15, 1.1040, time.Now().Add(time.Duration(i)*time.Minute))
		if err := store.Insert(context.Background(), ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	calc := NewBonusCalculator(store, 0.001, nil)

	bonus, samples, err := calc.Compute(context.Background(), "EURUSD", domrepo.TFM15, models.Bullish, 1.1040)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if samples != 3 {
		t.Fatalf("expected 3 matched samples, got %d", samples)
	}
	if bonus != 0 {
		t.Fatalf("expected neutral bonus with no resolved samples, got %d", bonus)
	}
}

func TestLinearCurveClamps(t *testing.T) {
	curve := DefaultCurve()
	cases := []struct {
		rate float64
		want int
	}{
		{1.0, 20},
		{0.0, -20},
		{0.5, 0},
		{0.8, 12},
		{0.2, -12},
		{0.95, 18},
	}
	for _, tc := range cases {
		if got := curve.Bonus(tc.rate, 10); got != tc.want {
			t.Fatalf("rate %.2f: expected %d, got %d", tc.rate, tc.want, got)
		}
	}
	if got := curve.Bonus(1.0, 0); got != 0 {
		t.Fatalf("expected zero bonus with zero samples, got %d", got)
	}
}

func TestSuccessRateNeutralWhenUnresolved(t *testing.T) {
	rate, resolved := SuccessRate(nil, nil)
	if rate != 0.5 || resolved != 0 {
		t.Fatalf("expected neutral (0.5, 0), got (%.2f, %d)", rate, resolved)
	}
}
