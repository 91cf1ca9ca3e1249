package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// MemoryConfig bounds the historical break-event memory. All components read
// their budgets from here; none decides its own.
type MemoryConfig struct {
	RetentionDays      int     `yaml:"retention_days" default:"180"`
	MaxRecords         int     `yaml:"max_records" default:"1000"`
	LowMemory          bool    `yaml:"low_memory"`
	ProximityTolerance float64 `yaml:"proximity_tolerance" default:"0.001"`
}

// WindowConfig bounds per-(symbol,timeframe) candle windows.
type WindowConfig struct {
	MaxBars      int `yaml:"max_bars" default:"5000"`
	LowMemoryCap int `yaml:"low_memory_cap" default:"750"`
}

// EffectiveLimits are the resolved budgets after the low-memory override.
type EffectiveLimits struct {
	RetentionDays int
	MaxRecords    int
	WindowCap     int
	FanOut        bool // secondary timeframe fan-out allowed
}

// Low-memory overrides. Fixed here so no component hardcodes its own budget.
const (
	lowMemRetentionDays = 30
	lowMemMaxRecords    = 200
)

// DetectConfig tunes the pattern detectors.
type DetectConfig struct {
	SwingLookback int `yaml:"swing_lookback" default:"3"`
	BOS           struct {
		BaseConfidence int `yaml:"base_confidence" default:"70"`
	} `yaml:"bos"`
	CHoCH struct {
		BaseConfidence int `yaml:"base_confidence" default:"68"`
	} `yaml:"choch"`
	FVG struct {
		BaseConfidence int     `yaml:"base_confidence" default:"72"`
		MinGapPips     float64 `yaml:"min_gap_pips" default:"3"`
		MaxGapPips     float64 `yaml:"max_gap_pips" default:"50"`
		PipSize        float64 `yaml:"pip_size" default:"0.0001"`
	} `yaml:"fvg"`
	MSS struct {
		MinDisplacementPips float64 `yaml:"min_displacement_pips" default:"15"`
		AvgRangeBars        int     `yaml:"avg_range_bars" default:"14"`
	} `yaml:"mss"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Logging     struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		CandlesTopic string   `yaml:"candles_topic" default:"candles"`
		SignalsTopic string   `yaml:"signals_topic" default:"pattern-signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"structpulse"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"1024"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"structpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		SuccessRateTTL time.Duration `yaml:"success_rate_ttl" default:"30s"`
	} `yaml:"cache"`
	Scan struct {
		Timeframes          []string `yaml:"timeframes"`
		SecondaryTimeframes []string `yaml:"secondary_timeframes"`
		SignalLogSize       int      `yaml:"signal_log_size" default:"256"`
	} `yaml:"scan"`
	Memory MemoryConfig `yaml:"memory"`
	Window WindowConfig `yaml:"window"`
	Detect DetectConfig `yaml:"detect"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults, and validates fail-fast.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOW_MEMORY"); v == "1" || strings.EqualFold(v, "true") {
		c.Memory.LowMemory = true
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration. Invalid values fail fast; nothing is
// silently clamped to a default.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("%w: environment is required", ErrInvalidConfig)
	}
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if c.Window.MaxBars <= 0 {
		return fmt.Errorf("%w: window.max_bars must be > 0, got %d", ErrInvalidConfig, c.Window.MaxBars)
	}
	if c.Window.LowMemoryCap <= 0 {
		return fmt.Errorf("%w: window.low_memory_cap must be > 0, got %d", ErrInvalidConfig, c.Window.LowMemoryCap)
	}
	if c.Detect.SwingLookback <= 0 {
		return fmt.Errorf("%w: detect.swing_lookback must be > 0, got %d", ErrInvalidConfig, c.Detect.SwingLookback)
	}
	if c.Detect.FVG.PipSize <= 0 {
		return fmt.Errorf("%w: detect.fvg.pip_size must be > 0", ErrInvalidConfig)
	}
	if c.Detect.FVG.MinGapPips <= 0 || c.Detect.FVG.MaxGapPips <= c.Detect.FVG.MinGapPips {
		return fmt.Errorf("%w: detect.fvg gap bounds must satisfy 0 < min < max", ErrInvalidConfig)
	}
	if c.Detect.MSS.AvgRangeBars <= 0 {
		return fmt.Errorf("%w: detect.mss.avg_range_bars must be > 0", ErrInvalidConfig)
	}
	if c.Feed.Enabled {
		if c.Feed.WebSocketURL == "" {
			return fmt.Errorf("%w: feed.websocket_url is required when feed is enabled", ErrInvalidConfig)
		}
		if len(c.Feed.Symbols) == 0 {
			return fmt.Errorf("%w: feed.symbols cannot be empty when feed is enabled", ErrInvalidConfig)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers cannot be empty when kafka is enabled", ErrInvalidConfig)
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("%w: clickhouse.host is required when clickhouse is enabled", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required when redis is enabled", ErrInvalidConfig)
	}
	for _, tf := range append(append([]string{}, c.Scan.Timeframes...), c.Scan.SecondaryTimeframes...) {
		if !validTF(tf) {
			return fmt.Errorf("%w: scan timeframe %q is not supported", ErrInvalidConfig, tf)
		}
	}
	return nil
}

// Validate checks memory bounds. max_records <= 0 is a hard error.
func (m MemoryConfig) Validate() error {
	if m.MaxRecords <= 0 {
		return fmt.Errorf("%w: memory.max_records must be > 0, got %d", ErrInvalidConfig, m.MaxRecords)
	}
	if m.RetentionDays <= 0 {
		return fmt.Errorf("%w: memory.retention_days must be > 0, got %d", ErrInvalidConfig, m.RetentionDays)
	}
	if m.ProximityTolerance <= 0 {
		return fmt.Errorf("%w: memory.proximity_tolerance must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Effective resolves the low-memory overrides into concrete limits.
func (c *Config) Effective() EffectiveLimits {
	if c.Memory.LowMemory {
		return EffectiveLimits{
			RetentionDays: lowMemRetentionDays,
			MaxRecords:    lowMemMaxRecords,
			WindowCap:     c.Window.LowMemoryCap,
			FanOut:        false,
		}
	}
	return EffectiveLimits{
		RetentionDays: c.Memory.RetentionDays,
		MaxRecords:    c.Memory.MaxRecords,
		WindowCap:     c.Window.MaxBars,
		FanOut:        true,
	}
}

// Retention returns the eviction horizon as a duration.
func (l EffectiveLimits) Retention() time.Duration {
	return time.Duration(l.RetentionDays) * 24 * time.Hour
}

func validTF(s string) bool {
	switch s {
	case "M1", "M5", "M15", "M30", "H1", "H4", "D1":
		return true
	default:
		return false
	}
}
