package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Binance struct {
		RESTBaseURL    string        `yaml:"rest_base_url"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		RetryMax       int           `yaml:"retry_max"`
	} `yaml:"binance"`
	Venue struct {
		BaseURL           string        `yaml:"base_url"`
		APIKey            string        `yaml:"api_key"`
		APISecret         string        `yaml:"api_secret"`
		Passphrase        string        `yaml:"passphrase"`
		RequestTimeout    time.Duration `yaml:"request_timeout"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
		RetryMax          int           `yaml:"retry_max"`
		BackoffMin        time.Duration `yaml:"backoff_min"`
		BackoffMax        time.Duration `yaml:"backoff_max"`
		PriceCacheTTL     time.Duration `yaml:"price_cache_ttl"`
		OrdersPerSecond   float64       `yaml:"orders_per_second"`
	} `yaml:"venue"`
	Trading struct {
		Assets           []string      `yaml:"assets"`
		Timeframe        string        `yaml:"timeframe"`
		CycleInterval    time.Duration `yaml:"cycle_interval"`
		MetricsInterval  time.Duration `yaml:"metrics_interval"`
		CycleTimeout     time.Duration `yaml:"cycle_timeout"`
		WarmupCandles    int           `yaml:"warmup_candles"`
		MinCandles       int           `yaml:"min_candles"`
		StartBalance     float64       `yaml:"start_balance"`
		MinConfidence    float64       `yaml:"min_confidence"`
		RequiredMajority int           `yaml:"required_majority"`
		FiveMinute       struct {
			MinConfidence  float64 `yaml:"min_confidence"`
			MinEdgePercent float64 `yaml:"min_edge_percent"`
		} `yaml:"five_minute"`
	} `yaml:"trading"`
	Arbitrage struct {
		MinEdgePercent float64 `yaml:"min_edge_percent"`
		MinConfidence  float64 `yaml:"min_confidence"`
	} `yaml:"arbitrage"`
	Risk struct {
		MaxPositionPercent        float64 `yaml:"max_position_percent"`
		MaxOpenPositions          int     `yaml:"max_open_positions"`
		DailyLossLimitPercent     float64 `yaml:"daily_loss_limit_percent"`
		MaxDrawdownPercent        float64 `yaml:"max_drawdown_percent"`
		MaxTradesPerHour          int     `yaml:"max_trades_per_hour"`
		MinConfidence             float64 `yaml:"min_confidence"`
		StopLossPercent           float64 `yaml:"stop_loss_percent"`
		ATRStopMultiplier         float64 `yaml:"atr_stop_multiplier"`
		TrailingActivationPercent float64 `yaml:"trailing_activation_percent"`
		TrailingDistancePercent   float64 `yaml:"trailing_distance_percent"`
	} `yaml:"risk"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		StateKey string `yaml:"state_key"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_WS_URL"); v != "" {
		c.Binance.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("VENUE_API_KEY"); v != "" {
		c.Venue.APIKey = v
	}
	if v := os.Getenv("VENUE_API_SECRET"); v != "" {
		c.Venue.APISecret = v
	}
	if v := os.Getenv("VENUE_PASSPHRASE"); v != "" {
		c.Venue.Passphrase = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.CycleInterval == 0 {
		c.Trading.CycleInterval = 10 * time.Second
	}
	if c.Trading.MetricsInterval == 0 {
		c.Trading.MetricsInterval = 2 * time.Second
	}
	if c.Trading.CycleTimeout == 0 {
		c.Trading.CycleTimeout = 8 * time.Second
	}
	if c.Trading.WarmupCandles == 0 {
		c.Trading.WarmupCandles = 250
	}
	if c.Trading.MinCandles == 0 {
		c.Trading.MinCandles = 50
	}
	if c.Trading.Timeframe == "" {
		c.Trading.Timeframe = "15m"
	}
	if c.Trading.RequiredMajority == 0 {
		c.Trading.RequiredMajority = 3
	}
	if c.Trading.FiveMinute.MinConfidence == 0 {
		c.Trading.FiveMinute.MinConfidence = 82
	}
	if c.Trading.FiveMinute.MinEdgePercent == 0 {
		c.Trading.FiveMinute.MinEdgePercent = 0.5
	}
	if c.Redis.StateKey == "" {
		c.Redis.StateKey = "scalpd:state"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Trading.Assets) == 0 {
		return fmt.Errorf("trading.assets cannot be empty")
	}
	if c.Binance.RESTBaseURL == "" {
		return fmt.Errorf("binance.rest_base_url is required")
	}
	if c.Venue.BaseURL == "" {
		return fmt.Errorf("venue.base_url is required")
	}
	if c.Risk.MaxPositionPercent <= 0 {
		return fmt.Errorf("risk.max_position_percent must be positive")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
