package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
)

// flakyStream fails its first read session with a transient error, then
// serves the breakout series on the session opened after Reconnect.
type flakyStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	connected  bool
	bars       []models.Candle
}

func (s *flakyStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *flakyStream) Subscribe(ctx context.Context) error { return nil }

func (s *flakyStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.connected = true
	s.mu.Unlock()
	return nil
}

func (s *flakyStream) Close() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *flakyStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *flakyStream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	s.mu.Lock()
	s.reads++
	session := s.reads
	s.mu.Unlock()

	candles := make(chan *models.Candle, 32)
	errs := make(chan error, 1)
	if session == 1 {
		errs <- fmt.Errorf("feed read: connection reset")
		close(candles)
		close(errs)
		return candles, errs
	}
	go func() {
		for i := range s.bars {
			candles <- &s.bars[i]
		}
		// session stays open; no close
	}()
	return candles, errs
}

func (s *flakyStream) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.reconnects
}

func TestCollectorResumesReadingAfterReconnect(t *testing.T) {
	scanner, pub, _ := scannerFixture(t)
	start := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	stream := &flakyStream{bars: breakoutBars(start)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	col := NewCandleCollector(stream, scanner, domrepo.TFM15, noopMetrics{}, nil)
	if err := col.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if pub.count() == 0 {
		t.Fatal("expected signals from candles delivered after reconnect")
	}

	reads, reconnects := stream.counts()
	if reconnects < 1 {
		t.Fatalf("expected at least one reconnect, got %d", reconnects)
	}
	if reads < 2 {
		t.Fatalf("expected a fresh read session after reconnect, got %d", reads)
	}
}
