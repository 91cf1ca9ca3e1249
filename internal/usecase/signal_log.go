package usecase

import (
	"sync"

	"StructPulse/internal/domain/models"
)

// SignalLog is a bounded in-process ring of recently emitted signals, backing
// the latest-signals API. Oldest entries are overwritten once full.
type SignalLog struct {
	mu   sync.RWMutex
	buf  []*models.PatternSignal
	next int
	full bool
}

func NewSignalLog(size int) *SignalLog {
	if size <= 0 {
		size = 1
	}
	return &SignalLog{buf: make([]*models.PatternSignal, size)}
}

// Append records a signal, overwriting the oldest when full.
func (l *SignalLog) Append(sig *models.PatternSignal) {
	if sig == nil {
		return
	}
	l.mu.Lock()
	l.buf[l.next] = sig
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()
}

// Latest returns up to limit signals, newest first, optionally filtered by
// symbol and pattern (empty filter matches everything).
func (l *SignalLog) Latest(limit int, symbol string, pattern models.PatternType) []*models.PatternSignal {
	if limit <= 0 {
		limit = len(l.buf)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	if l.full {
		n = len(l.buf)
	}
	out := make([]*models.PatternSignal, 0, min(limit, n))
	for i := 0; i < n && len(out) < limit; i++ {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		sig := l.buf[idx]
		if sig == nil {
			continue
		}
		if symbol != "" && sig.Symbol != symbol {
			continue
		}
		if pattern != "" && sig.Pattern != pattern {
			continue
		}
		out = append(out, sig)
	}
	return out
}

// Size returns the number of retained signals.
func (l *SignalLog) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.full {
		return len(l.buf)
	}
	return l.next
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
