package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the tradable universe used when no symbols are configured.
var DefaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "NFLX", "AMD", "INTC",
	"JPM", "BAC", "GS", "V", "MA", "KO", "PEP", "WMT", "XOM", "CVX",
	"JNJ", "PFE", "UNH", "DIS", "SPY", "QQQ", "DIA", "IWM",
}

type Config struct {
	Environment string          `yaml:"environment" default:"development"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Symbols     []string        `yaml:"symbols"`
	Provider    ProviderConfig  `yaml:"provider"`
	Breaker     BreakerConfig   `yaml:"breaker"`
	Regime      RegimeConfig    `yaml:"regime"`
	Cache       CacheConfig     `yaml:"cache"`
	RateLimit   RateLimitConfig `yaml:"ratelimit"`
	Events      EventsConfig    `yaml:"events"`
}

type LogConfig struct {
	Level     string `yaml:"level" default:"info"`
	Format    string `yaml:"format" default:"console"`
	Output    string `yaml:"output" default:"stdout"`
	Collector struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"regimeapi.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"collector"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"45s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type ProviderConfig struct {
	Type         string        `yaml:"type" default:"yahoo"`
	Timeout      time.Duration `yaml:"timeout" default:"15s"`
	Retries      int           `yaml:"retries" default:"1"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"250ms"`
	Alpaca       struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url"`
		Feed      string `yaml:"feed" default:"iex"`
	} `yaml:"alpaca"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" default:"5432"`
	Name     string `yaml:"name" default:"market"`
	User     string `yaml:"user" default:"postgres"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode" default:"prefer"`
	Table    string `yaml:"table" default:"bars"`
	MinConns int    `yaml:"min_conns" default:"1"`
	MaxConns int    `yaml:"max_conns" default:"8"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"market"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"bars"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled" default:"true"`
	MaxRequests         uint32        `yaml:"max_requests" default:"1"`
	Interval            time.Duration `yaml:"interval" default:"60s"`
	Timeout             time.Duration `yaml:"timeout" default:"30s"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" default:"5"`
}

type RegimeConfig struct {
	DefaultRegimes          int     `yaml:"default_regimes" default:"3"`
	MaxRegimes              int     `yaml:"max_regimes" default:"10"`
	MinObservationsPerState int     `yaml:"min_observations_per_state" default:"10"`
	MaxIterations           int     `yaml:"max_iterations" default:"200"`
	Tolerance               float64 `yaml:"tolerance" default:"1e-6"`
	Seed                    uint64  `yaml:"seed" default:"42"`
	Features                string  `yaml:"features" default:"returns"`
	Workers                 int     `yaml:"workers"`
	StrictConvergence       bool    `yaml:"strict_convergence"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" default:"true"`
	TTL           time.Duration `yaml:"ttl" default:"10m"`
	BarsTTL       time.Duration `yaml:"bars_ttl" default:"5m"`
	MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
	L1TTL         time.Duration `yaml:"l1_ttl" default:"1m"`
	Cleanup       time.Duration `yaml:"cleanup_interval" default:"1m"`
	Redis         struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"regimeapi"`
		PoolSize     int           `yaml:"pool_size" default:"20"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
	} `yaml:"redis"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"5"`
	Burst   int     `yaml:"burst" default:"10"`
}

type EventsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"regimeapi.regimes"`
	Compression  string        `yaml:"compression" default:"snappy"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
	Async        bool          `yaml:"async" default:"true"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// defaults are static tags; a failure here is a programming error
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	c.Symbols = append([]string(nil), DefaultSymbols...)
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), DefaultSymbols...)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies environment overrides.
// A missing YAML file falls back to defaults.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var c *Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		c = loaded
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider.Type = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Provider.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.Provider.Alpaca.APISecret = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.Provider.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.Provider.ClickHouse.Password = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Provider.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Provider.Postgres.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
		c.Events.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Events.Topic = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols cannot be empty")
	}
	switch c.Provider.Type {
	case "yahoo":
	case "alpaca":
		if c.Provider.Alpaca.APIKey == "" || c.Provider.Alpaca.APISecret == "" {
			return fmt.Errorf("provider.alpaca.api_key and api_secret are required for provider 'alpaca'")
		}
	case "clickhouse":
		if c.Provider.ClickHouse.Host == "" {
			return fmt.Errorf("provider.clickhouse.host is required for provider 'clickhouse'")
		}
		if c.Provider.ClickHouse.Table == "" {
			return fmt.Errorf("provider.clickhouse.table is required for provider 'clickhouse'")
		}
	case "postgres":
		if c.Provider.Postgres.Host == "" {
			return fmt.Errorf("provider.postgres.host is required for provider 'postgres'")
		}
	default:
		return fmt.Errorf("provider.type must be 'yahoo', 'alpaca', 'clickhouse' or 'postgres', got '%s'", c.Provider.Type)
	}
	if c.Provider.Retries < 0 {
		return fmt.Errorf("provider.retries must be >= 0")
	}

	r := c.Regime
	if r.MaxRegimes < 1 {
		return fmt.Errorf("regime.max_regimes must be >= 1")
	}
	if r.DefaultRegimes < 1 || r.DefaultRegimes > r.MaxRegimes {
		return fmt.Errorf("regime.default_regimes must be in [1, %d]", r.MaxRegimes)
	}
	if r.MinObservationsPerState < 1 {
		return fmt.Errorf("regime.min_observations_per_state must be >= 1")
	}
	if r.MaxIterations < 1 {
		return fmt.Errorf("regime.max_iterations must be >= 1")
	}
	if r.Tolerance <= 0 {
		return fmt.Errorf("regime.tolerance must be > 0")
	}
	if r.Features != "returns" && r.Features != "returns_range" {
		return fmt.Errorf("regime.features must be 'returns' or 'returns_range', got '%s'", r.Features)
	}
	if r.Workers < 0 {
		return fmt.Errorf("regime.workers must be >= 0")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("ratelimit.rps must be > 0 and ratelimit.burst >= 1")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}
	if c.Log.Collector.Enabled && !c.Events.Enabled {
		return fmt.Errorf("log.collector requires events to be enabled")
	}
	return nil
}
