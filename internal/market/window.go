package market

import (
	"errors"
	"fmt"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
)

// ErrOutOfOrder is returned when a bar arrives with a timestamp at or before
// the last stored bar. The caller skips the bar; no detector runs on it.
var ErrOutOfOrder = errors.New("out of order candle")

// CandleWindow keeps a bounded, time-ordered view of bars for one
// (symbol, timeframe) pair. Oldest bars are discarded beyond the cap.
type CandleWindow struct {
	symbol string
	tf     domrepo.Timeframe
	cap    int
	bars   []models.Candle
}

// NewCandleWindow creates a window with the given retention cap. The cap comes
// from config.EffectiveLimits; the window never chooses its own budget.
func NewCandleWindow(symbol string, tf domrepo.Timeframe, capBars int) *CandleWindow {
	if capBars <= 0 {
		capBars = 1
	}
	return &CandleWindow{
		symbol: symbol,
		tf:     tf,
		cap:    capBars,
		bars:   make([]models.Candle, 0, min(capBars, 1024)),
	}
}

// Push appends a bar, enforcing strictly increasing timestamps.
func (w *CandleWindow) Push(c models.Candle) error {
	if n := len(w.bars); n > 0 {
		last := w.bars[n-1].Timestamp
		if !c.Timestamp.After(last) {
			return fmt.Errorf("%w: %s/%s bar at %s, last stored %s",
				ErrOutOfOrder, w.symbol, w.tf, c.Timestamp.Format("2006-01-02T15:04:05Z07:00"), last.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	w.bars = append(w.bars, c)
	if len(w.bars) > w.cap {
		drop := len(w.bars) - w.cap
		w.bars = append(w.bars[:0], w.bars[drop:]...)
	}
	return nil
}

// Tail returns the last n bars, or fewer at the start of the series.
// The returned slice must not be mutated by callers.
func (w *CandleWindow) Tail(n int) []models.Candle {
	if n <= 0 {
		return nil
	}
	if n > len(w.bars) {
		n = len(w.bars)
	}
	return w.bars[len(w.bars)-n:]
}

// Len returns the number of retained bars.
func (w *CandleWindow) Len() int { return len(w.bars) }

// Last returns the most recent bar.
func (w *CandleWindow) Last() (models.Candle, bool) {
	if len(w.bars) == 0 {
		return models.Candle{}, false
	}
	return w.bars[len(w.bars)-1], true
}

// Symbol returns the window's symbol.
func (w *CandleWindow) Symbol() string { return w.symbol }

// Timeframe returns the window's timeframe.
func (w *CandleWindow) Timeframe() domrepo.Timeframe { return w.tf }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
