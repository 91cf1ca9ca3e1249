package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"StructPulse/internal/domain/models"
	domrepo "StructPulse/internal/domain/repository"
	domsvc "StructPulse/internal/domain/service"
	"StructPulse/internal/market"
	"StructPulse/pkg/config"
	applogger "StructPulse/pkg/logger"
)

// Scanner owns the per-(symbol, timeframe) candle windows and drives the
// detector registry over them as candles close. Enriched signals go to the
// publisher and the in-process signal log.
type Scanner struct {
	limits    config.EffectiveLimits
	lookback  int
	detectors []domsvc.PatternDetector
	enricher  *ConfidenceEnricher
	pub       domrepo.SignalPublisher
	log       *SignalLog
	metrics   domrepo.Metrics
	l         *applogger.Logger

	mu       sync.Mutex
	windows  map[string]*market.CandleWindow
	builders map[string]*market.CandleBuilder
	fanOut   []domrepo.Timeframe
	emitted  map[string]emittedKey
}

// emittedKey dedupes repeat detections of the same unresolved break while the
// window keeps closing above it.
type emittedKey struct {
	level float64
	dir   models.Direction
}

// NewScanner creates a scanner. pub may be nil when no external transport is
// configured; signals then only reach the in-process log.
func NewScanner(
	cfg *config.Config,
	detectors []domsvc.PatternDetector,
	enricher *ConfidenceEnricher,
	pub domrepo.SignalPublisher,
	log *SignalLog,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Scanner {
	s := &Scanner{
		limits:    cfg.Effective(),
		lookback:  cfg.Detect.SwingLookback,
		detectors: detectors,
		enricher:  enricher,
		pub:       pub,
		log:       log,
		metrics:   metrics,
		l:         l,
		windows:   make(map[string]*market.CandleWindow),
		builders:  make(map[string]*market.CandleBuilder),
		emitted:   make(map[string]emittedKey),
	}
	if s.limits.FanOut {
		for _, tf := range cfg.Scan.SecondaryTimeframes {
			s.fanOut = append(s.fanOut, domrepo.Timeframe(tf))
		}
	}
	return s
}

// OnCandle ingests one closed candle for a timeframe, runs a detection pass,
// and fans the candle out into the secondary timeframe builders. Out-of-order
// candles are logged and skipped; they never abort the stream.
func (s *Scanner) OnCandle(ctx context.Context, tf domrepo.Timeframe, c *models.Candle) {
	if c == nil {
		return
	}

	s.mu.Lock()
	w := s.window(c.Symbol, tf)
	if err := w.Push(*c); err != nil {
		s.mu.Unlock()
		if errors.Is(err, market.ErrOutOfOrder) {
			s.metrics.RecordError("out_of_order")
			if s.l != nil {
				s.l.Warn("dropping out-of-order candle",
					applogger.String("symbol", c.Symbol),
					applogger.String("timeframe", string(tf)),
					applogger.Any("timestamp", c.Timestamp),
				)
			}
			return
		}
		s.metrics.RecordError("window_push")
		return
	}
	bars := append([]models.Candle(nil), w.Tail(w.Len())...)
	s.mu.Unlock()

	s.runPass(ctx, tf, bars)
	s.fanOutCandle(ctx, tf, c)
}

// RunPass re-scans the current window of one partition without ingesting.
func (s *Scanner) RunPass(ctx context.Context, symbol string, tf domrepo.Timeframe) {
	s.mu.Lock()
	w := s.window(symbol, tf)
	bars := append([]models.Candle(nil), w.Tail(w.Len())...)
	s.mu.Unlock()
	s.runPass(ctx, tf, bars)
}

func (s *Scanner) runPass(ctx context.Context, tf domrepo.Timeframe, bars []models.Candle) {
	if len(bars) == 0 {
		return
	}
	swings := market.DetectSwings(bars, s.lookback)

	for _, d := range s.detectors {
		base, ok := d.Detect(bars, swings)
		if !ok {
			continue
		}
		base.Timeframe = string(tf)
		if s.seen(base) {
			continue
		}

		sig, err := s.enricher.Enrich(ctx, base)
		if err != nil {
			if s.l != nil {
				s.l.Error("enrich failed", applogger.Error(err), applogger.String("pattern", string(base.Pattern)))
			}
			continue
		}
		s.emit(ctx, sig)
	}
}

// seen reports whether the same break level was already emitted for this
// pattern partition, and records it otherwise.
func (s *Scanner) seen(base models.BaseSignal) bool {
	key := fmt.Sprintf("%s|%s|%s", base.Pattern, base.Symbol, base.Timeframe)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.emitted[key]
	if ok && prev.level == base.BreakLevel && prev.dir == base.Direction {
		return true
	}
	s.emitted[key] = emittedKey{level: base.BreakLevel, dir: base.Direction}
	return false
}

func (s *Scanner) emit(ctx context.Context, sig *models.PatternSignal) {
	if s.log != nil {
		s.log.Append(sig)
	}
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, sig); err != nil {
		s.metrics.RecordError("publish")
		if s.l != nil {
			s.l.Error("publish failed", applogger.Error(err), applogger.String("symbol", sig.Symbol))
		}
	}
}

func (s *Scanner) fanOutCandle(ctx context.Context, tf domrepo.Timeframe, c *models.Candle) {
	if len(s.fanOut) == 0 || tf != domrepo.DefaultTimeframe() {
		return
	}
	for _, target := range s.fanOut {
		if domrepo.TimeframeDuration(target) <= domrepo.TimeframeDuration(tf) {
			continue
		}
		s.mu.Lock()
		b, ok := s.builders[c.Symbol+"|"+string(target)]
		if !ok {
			b = market.NewCandleBuilder(c.Symbol, target)
			s.builders[c.Symbol+"|"+string(target)] = b
		}
		s.mu.Unlock()
		if closed := b.AddCandle(*c); closed != nil {
			s.OnCandle(ctx, target, closed)
		}
	}
}

// window returns the partition window, creating it lazily. Caller holds s.mu.
func (s *Scanner) window(symbol string, tf domrepo.Timeframe) *market.CandleWindow {
	key := symbol + "|" + string(tf)
	w, ok := s.windows[key]
	if !ok {
		w = market.NewCandleWindow(symbol, tf, s.limits.WindowCap)
		s.windows[key] = w
	}
	return w
}

// WindowSize reports the bar count of one partition window.
func (s *Scanner) WindowSize(symbol string, tf domrepo.Timeframe) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window(symbol, tf).Len()
}
