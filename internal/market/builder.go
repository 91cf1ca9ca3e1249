package market

import (
	"time"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
)

// CandleBuilder aggregates ticks or finer candles into fixed buckets for one
// (symbol, timeframe) pair. A bucket closes when input reaches the next one;
// the closed candle is returned to the caller.
type CandleBuilder struct {
	symbol string
	tf     domrepo.Timeframe
	dur    time.Duration

	open    bool
	start   time.Time
	current models.Candle
}

func NewCandleBuilder(symbol string, tf domrepo.Timeframe) *CandleBuilder {
	return &CandleBuilder{
		symbol: symbol,
		tf:     tf,
		dur:    domrepo.TimeframeDuration(tf),
	}
}

// AddTick folds one trade tick into the current bucket. Returns the closed
// candle when the tick opens a new bucket, nil otherwise.
func (b *CandleBuilder) AddTick(t models.Tick) *models.Candle {
	ts := time.Unix(t.Timestamp, 0).UTC()
	closed := b.roll(ts)

	if !b.open {
		b.openBucket(ts, t.Price, t.Price, t.Price, t.Price, t.Volume)
		return closed
	}
	if t.Price > b.current.High {
		b.current.High = t.Price
	}
	if t.Price < b.current.Low {
		b.current.Low = t.Price
	}
	b.current.Close = t.Price
	b.current.Volume += t.Volume
	return closed
}

// AddCandle folds a finer-resolution candle into the current bucket.
func (b *CandleBuilder) AddCandle(c models.Candle) *models.Candle {
	closed := b.roll(c.Timestamp)

	if !b.open {
		b.openBucket(c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		return closed
	}
	if c.High > b.current.High {
		b.current.High = c.High
	}
	if c.Low < b.current.Low {
		b.current.Low = c.Low
	}
	b.current.Close = c.Close
	b.current.Volume += c.Volume
	return closed
}

// Flush closes and returns the in-progress bucket, if any.
func (b *CandleBuilder) Flush() *models.Candle {
	if !b.open {
		return nil
	}
	out := b.current
	b.open = false
	return &out
}

// roll closes the current bucket when ts falls past its end.
func (b *CandleBuilder) roll(ts time.Time) *models.Candle {
	if !b.open || ts.Before(b.start.Add(b.dur)) {
		return nil
	}
	out := b.current
	b.open = false
	return &out
}

func (b *CandleBuilder) openBucket(ts time.Time, open, high, low, close float64, volume int64) {
	b.start = ts.Truncate(b.dur)
	b.current = models.Candle{
		Symbol:    b.symbol,
		Timestamp: b.start,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
	b.open = true
}
