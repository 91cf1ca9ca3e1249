package di

import (
	"context"
	"fmt"
	"time"

	"StructPulse/internal/domain/repository"
	"StructPulse/internal/handler/api"
	"StructPulse/internal/memory"
	mid "StructPulse/internal/middleware"
	internalrepo "StructPulse/internal/repository"
	icache "StructPulse/internal/service/cache"
	"StructPulse/internal/service/detect"
	"StructPulse/internal/service/feed"
	"StructPulse/internal/usecase"
	pkgch "StructPulse/pkg/clickhouse"
	"StructPulse/pkg/config"
	xhttp "StructPulse/pkg/http"
	pkgkafka "StructPulse/pkg/kafka"
	applogger "StructPulse/pkg/logger"
	"StructPulse/pkg/metrics"
	"StructPulse/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMemoryStore creates the in-process break-event memory, bounded by the
// resolved retention and cap limits.
func ProvideMemoryStore(cfg *config.Config, m repository.Metrics, l *applogger.Logger) *memory.Store {
	return memory.NewStore(cfg.Effective(),
		memory.WithMetrics(m),
		memory.WithLogger(l),
	)
}

// ProvideBonusCalculator creates the proximity-based confidence bonus source.
func ProvideBonusCalculator(store *memory.Store, cfg *config.Config) *memory.BonusCalculator {
	return memory.NewBonusCalculator(store, cfg.Memory.ProximityTolerance, memory.DefaultCurve())
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBreakEventStore creates the persistent break-event store, or nil
// when ClickHouse is disabled. The engine then runs memory-only.
func ProvideBreakEventStore(chClient *pkgch.Client, l *applogger.Logger) repository.BreakEventStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewClickHouseBreakStore(chClient)
	if s, ok := store.(*internalrepo.ClickHouseBreakStore); ok {
		s.SetLogger(l)
	}
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the Kafka-backed signal publisher, or nil
// when Kafka is disabled. Signals then only reach the in-process log.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic)
}

// ProvideEnricher creates the confidence enricher backed by the memory store.
func ProvideEnricher(
	bonus *memory.BonusCalculator,
	store *memory.Store,
	persist repository.BreakEventStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ConfidenceEnricher {
	return usecase.NewConfidenceEnricher(bonus, store, persist, m, l)
}

// ProvideDetectorRegistry builds the pattern detector registry and fails fast
// on wiring mistakes.
func ProvideDetectorRegistry(cfg *config.Config) (*detect.Registry, error) {
	reg := detect.NewRegistry(cfg)
	if err := reg.VerifyWired(); err != nil {
		return nil, fmt.Errorf("detector registry: %w", err)
	}
	return reg, nil
}

// ProvideSignalLog creates the in-process ring buffer of recent signals.
func ProvideSignalLog(cfg *config.Config) *usecase.SignalLog {
	return usecase.NewSignalLog(cfg.Scan.SignalLogSize)
}

// ProvideScanner creates the pattern scanner.
func ProvideScanner(
	cfg *config.Config,
	reg *detect.Registry,
	enricher *usecase.ConfidenceEnricher,
	pub repository.SignalPublisher,
	log *usecase.SignalLog,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Scanner {
	return usecase.NewScanner(cfg, reg.All(), enricher, pub, log, m, l)
}

// ProvideCandleCollector creates the live feed collector, or nil when the
// feed is disabled (Kafka-only ingestion).
func ProvideCandleCollector(cfg *config.Config, scanner *usecase.Scanner, m repository.Metrics) *usecase.CandleCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	tf := repository.DefaultTimeframe()
	stream := feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		tf,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
	// Validation and throttling pipeline between the WebSocket and the scanner
	proc := usecase.NewScannerProc(scanner, tf)
	pipe := mid.NewCandlePipeline(proc, m,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(1000),
	)
	return usecase.NewCandleCollector(stream, scanner, tf, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaCandlesHandler registers the handler for the candles topic.
func ProvideKafkaCandlesHandler(cfg *config.Config, scanner *usecase.Scanner, m repository.Metrics) *usecase.KafkaCandlesHandler {
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.CandlesTopic, scanner, m)
}

// ProvideBytesCache picks the stats cache backend: Redis when enabled,
// otherwise an in-process TTL cache.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideMemoryStats creates the cached memory statistics use case.
func ProvideMemoryStats(store *memory.Store, c icache.BytesCache, cfg *config.Config) *usecase.MemoryStatsUseCase {
	return usecase.NewMemoryStatsUseCase(store, c, cfg.Cache.SuccessRateTTL)
}

// ProvideOutcomeUseCase creates the outcome resolution use case.
func ProvideOutcomeUseCase(store *memory.Store, persist repository.BreakEventStore, m repository.Metrics) *usecase.OutcomeUseCase {
	return usecase.NewOutcomeUseCase(store, persist, m)
}

// ProvideSignalsHandler creates the HTTP API handler.
func ProvideSignalsHandler(
	l *applogger.Logger,
	log *usecase.SignalLog,
	stats *usecase.MemoryStatsUseCase,
	outcome *usecase.OutcomeUseCase,
) xhttp.Handler {
	return api.NewSignalsHandler(l, log, stats, outcome)
}

// consumeTimingHook stamps handling start time and trace id, then reports
// end-to-end consume latency per topic.
func consumeTimingHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			if start, ok := pkgkafka.StartTime(ctx); ok {
				m.RecordLatency("consume_"+topic, time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			m.RecordError("consume_" + topic)
		},
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandlesHandler,
	chClient *pkgch.Client,
	store *memory.Store,
	breakStore repository.BreakEventStore,
	pub repository.SignalPublisher,
	httpHandler xhttp.Handler,
	m repository.Metrics,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NewHookChain(consumeTimingHook(m)))
	}
	var kafkaHandler pkgkafka.MessageHandler
	if kh != nil {
		kafkaHandler = kh
	}
	app := server.New(cfg, collector, consumer, kafkaHandler, chClient, store)
	app.SetHTTPHandler(httpHandler)
	app.SetBreakStore(breakStore)
	app.SetPublisher(pub)
	return app
}
