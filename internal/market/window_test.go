package market

import (
	"errors"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
)

func bar(ts time.Time, o, h, l, c float64) models.Candle {
	return models.Candle{Symbol: "EURUSD", Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func TestPushOrdered(t *testing.T) {
	w := NewCandleWindow("EURUSD", domrepo.TFM15, 100)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		if err := w.Push(bar(t0.Add(time.Duration(i)*time.Minute), 1, 1.1, 0.9, 1.05)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if w.Len() != 10 {
		t.Fatalf("len = %d", w.Len())
	}
}

func TestPushOutOfOrder(t *testing.T) {
	w := NewCandleWindow("EURUSD", domrepo.TFM15, 100)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := w.Push(bar(t0, 1, 1.1, 0.9, 1.05)); err != nil {
		t.Fatalf("push: %v", err)
	}
	// equal timestamp rejected
	if err := w.Push(bar(t0, 1, 1.1, 0.9, 1.05)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for duplicate, got %v", err)
	}
	// earlier timestamp rejected
	if err := w.Push(bar(t0.Add(-time.Minute), 1, 1.1, 0.9, 1.05)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder for late bar, got %v", err)
	}
	if w.Len() != 1 {
		t.Fatalf("rejected bars must not be stored, len = %d", w.Len())
	}
}

func TestCapDiscardsOldest(t *testing.T) {
	w := NewCandleWindow("EURUSD", domrepo.TFM15, 5)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		if err := w.Push(bar(t0.Add(time.Duration(i)*time.Minute), float64(i), float64(i)+0.1, float64(i)-0.1, float64(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if w.Len() != 5 {
		t.Fatalf("len = %d, want 5", w.Len())
	}
	tail := w.Tail(5)
	if tail[0].Open != 3 {
		t.Fatalf("oldest retained bar open = %v, want 3", tail[0].Open)
	}
	last, ok := w.Last()
	if !ok || last.Open != 7 {
		t.Fatalf("last = %+v", last)
	}
}

func TestTailShorterThanSeries(t *testing.T) {
	w := NewCandleWindow("EURUSD", domrepo.TFM15, 100)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = w.Push(bar(t0.Add(time.Duration(i)*time.Minute), 1, 1.1, 0.9, 1))
	}
	if got := len(w.Tail(10)); got != 3 {
		t.Fatalf("tail(10) len = %d", got)
	}
	if got := len(w.Tail(2)); got != 2 {
		t.Fatalf("tail(2) len = %d", got)
	}
}
