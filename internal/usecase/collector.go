package usecase

import (
	"context"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	mid "StructPulse/internal/middleware"
)

// CandleCollector reads closed candles from the market stream and hands them
// to the scanner, optionally through the validating pipeline.
type CandleCollector struct {
	stream  domrepo.CandleStream
	scanner *Scanner
	tf      domrepo.Timeframe
	metrics domrepo.Metrics
	pipe    *mid.CandlePipeline
}

func NewCandleCollector(stream domrepo.CandleStream, scanner *Scanner, tf domrepo.Timeframe, metrics domrepo.Metrics, pipe *mid.CandlePipeline) *CandleCollector {
	return &CandleCollector{stream: stream, scanner: scanner, tf: tf, metrics: metrics, pipe: pipe}
}

// IsConnected reports the market stream state.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	candleCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, candleCh, errCh)
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, candleCh <-chan *models.Candle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				// stream read loop exited; re-establish and resume reading
				candleCh, errCh = c.restart(ctx)
				if errCh == nil {
					return
				}
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case candle, ok := <-candleCh:
			if !ok {
				// block on errCh until the stream is restarted
				candleCh = nil
				continue
			}
			if candle == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, candle)
			} else {
				c.scanner.OnCandle(ctx, c.tf, candle)
			}
		}
	}
}

// restart reconnects the stream after its read loop has died and returns
// fresh channels. Retries until a reconnect succeeds; nil channels mean the
// context was cancelled.
func (c *CandleCollector) restart(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream")
			continue
		}
		return c.stream.Read(ctx)
	}
}

// ScannerProc adapts the scanner to the pipeline's downstream interface for
// one fixed timeframe.
type ScannerProc struct {
	scanner *Scanner
	tf      domrepo.Timeframe
}

func NewScannerProc(scanner *Scanner, tf domrepo.Timeframe) *ScannerProc {
	return &ScannerProc{scanner: scanner, tf: tf}
}

func (p *ScannerProc) Process(ctx context.Context, candle *models.Candle) error {
	p.scanner.OnCandle(ctx, p.tf, candle)
	return nil
}

// Shutdown stops the pipeline and closes the stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
