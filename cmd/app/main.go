package main

import (
	"flag"
	"log"
	"os"

	"StructPulse/internal/di"
	"StructPulse/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	limits := cfg.Effective()
	log.Printf("env=%s low_memory=%t retention_days=%d max_records=%d",
		cfg.Environment, cfg.Memory.LowMemory, limits.RetentionDays, limits.MaxRecords)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	}
	if cfg.Kafka.Enabled {
		log.Printf("kafka: connected brokers=%v candles=%s signals=%s",
			cfg.Kafka.Brokers, cfg.Kafka.CandlesTopic, cfg.Kafka.SignalsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
