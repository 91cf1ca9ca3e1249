//go:build wireinject
// +build wireinject

package di

import (
	"StructPulse/pkg/config"
	"StructPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Memory and enrichment
		ProvideMemoryStore,
		ProvideBonusCalculator,
		ProvideBreakEventStore,
		ProvideEnricher,

		// Detection and ingestion
		ProvideDetectorRegistry,
		ProvideSignalLog,
		ProvideSignalPublisher,
		ProvideScanner,
		ProvideCandleCollector,
		ProvideKafkaCandlesHandler,

		// HTTP surface
		ProvideBytesCache,
		ProvideMemoryStats,
		ProvideOutcomeUseCase,
		ProvideSignalsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
