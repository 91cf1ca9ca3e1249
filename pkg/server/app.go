package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	domrepo "StructPulse/internal/domain/repository"
	"StructPulse/internal/memory"
	"StructPulse/internal/usecase"
	pkgch "StructPulse/pkg/clickhouse"
	"StructPulse/pkg/config"
	xhttp "StructPulse/pkg/http"
	pkgkafka "StructPulse/pkg/kafka"
	applogger "StructPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.CandleCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	breakStore  domrepo.BreakEventStore
	store       *memory.Store
	publisher   domrepo.SignalPublisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies. collector, consumer,
// chClient, and publisher may be nil when the corresponding backend is
// disabled in config.
func New(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	store *memory.Store,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		store:     store,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetBreakStore allows DI to inject the persistent break-event store used for
// warm loading the in-process memory on startup.
func (a *App) SetBreakStore(s domrepo.BreakEventStore) { a.breakStore = s }

// SetPublisher allows DI to inject the signal publisher so shutdown can close
// its underlying producer.
func (a *App) SetPublisher(p domrepo.SignalPublisher) { a.publisher = p }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := applogger.New(&applogger.Config{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: a.cfg.Logging.Output,
	})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}

	// Warm the break-event memory from ClickHouse before any candle arrives,
	// so the first signals of the session already carry history.
	if a.breakStore != nil && a.store != nil {
		a.warmMemory(ctx, l)
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestLogger(l),
	)

	// Start live candle feed
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("feed collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l)
}

// warmMemory seeds every (symbol, timeframe) partition from the persistent
// store. A failed partition load is logged and skipped; the engine still
// starts with whatever loaded.
func (a *App) warmMemory(ctx context.Context, l *applogger.Logger) {
	if err := a.breakStore.Init(ctx); err != nil {
		l.Warn("break store init error", applogger.Error(err))
		return
	}

	limits := a.cfg.Effective()
	timeframes := []domrepo.Timeframe{domrepo.DefaultTimeframe()}
	if limits.FanOut {
		for _, raw := range a.cfg.Scan.SecondaryTimeframes {
			timeframes = append(timeframes, domrepo.NormalizeTimeframe(raw))
		}
	}

	loaded := 0
	for _, symbol := range a.cfg.Feed.Symbols {
		for _, tf := range timeframes {
			events, err := a.breakStore.LoadPartition(ctx, symbol, tf, limits.MaxRecords)
			if err != nil {
				l.Warn("memory warm load error",
					applogger.String("symbol", symbol),
					applogger.String("timeframe", string(tf)),
					applogger.Error(err))
				continue
			}
			if len(events) == 0 {
				continue
			}
			a.store.ReplacePartition(symbol, tf, events)
			loaded += len(events)
		}
	}
	l.Info("memory warm load complete", applogger.Int("events", loaded))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	l.Info("shutting down...")

	// Stop feed collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close signal publisher (flushes the Kafka producer)
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
