package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"FinDash/pkg/util"
)

type Config struct {
	Environment string         `yaml:"environment" default:"development"`
	Server      ServerConfig   `yaml:"server"`
	Logger      LoggerConfig   `yaml:"logger"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Cache       CacheConfig    `yaml:"cache"`
	Upstream    UpstreamConfig `yaml:"upstream"`
	Runner      RunnerConfig   `yaml:"runner"`
	Polling     PollingConfig  `yaml:"polling"`
	Preload     PreloadConfig  `yaml:"preload"`
	Breaker     BreakerConfig  `yaml:"breaker"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	CORS            bool          `yaml:"cors" default:"true"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json"`
	Output string `yaml:"output" default:"stdout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type CacheConfig struct {
	MaxSize    int           `yaml:"max_size" default:"1000"`
	DefaultTTL time.Duration `yaml:"default_ttl" default:"5m"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"findash"`
	// Addr overrides Host and Port when set.
	Addr string `yaml:"addr"`
}

type UpstreamConfig struct {
	PortfolioURL   string        `yaml:"portfolio_url"`
	MarketURL      string        `yaml:"market_url"`
	ForumURL       string        `yaml:"forum_url"`
	PredictionURL  string        `yaml:"prediction_url"`
	Timeout        time.Duration `yaml:"timeout" default:"10s"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" default:"10"`
	RateLimitBurst int           `yaml:"rate_limit_burst" default:"20"`
}

type RunnerConfig struct {
	MaxRetries int           `yaml:"max_retries" default:"3"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"1s"`
	CacheTTL   time.Duration `yaml:"cache_ttl" default:"5m"`
	// MaxKeyed caps per-symbol performance and prediction runners.
	MaxKeyed int `yaml:"max_keyed" default:"256"`
}

type PollingConfig struct {
	QuotesInterval time.Duration `yaml:"quotes_interval" default:"15s"`
	Symbols        []string      `yaml:"symbols"`
}

type PreloadConfig struct {
	Concurrent bool     `yaml:"concurrent" default:"true"`
	Priority   []string `yaml:"priority"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests" default:"1"`
	Interval     time.Duration `yaml:"interval" default:"60s"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
	FailureRatio float64       `yaml:"failure_ratio" default:"0.6"`
	MinRequests  uint32        `yaml:"min_requests" default:"5"`
}

// Load reads and parses a YAML configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables
// before validating.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// defaults first so explicit false/zero values in the file survive
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PORTFOLIO_API_URL"); v != "" {
		c.Upstream.PortfolioURL = v
	}
	if v := getenv("MARKET_API_URL"); v != "" {
		c.Upstream.MarketURL = v
	}
	if v := getenv("FORUM_API_URL"); v != "" {
		c.Upstream.ForumURL = v
	}
	if v := getenv("PREDICTION_API_URL"); v != "" {
		c.Upstream.PredictionURL = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Polling.Symbols = util.SplitCSV(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	c.Server.Port = util.ParseIntDefault(getenv("PORT"), c.Server.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	upstreams := map[string]string{
		"upstream.portfolio_url":  c.Upstream.PortfolioURL,
		"upstream.market_url":     c.Upstream.MarketURL,
		"upstream.forum_url":      c.Upstream.ForumURL,
		"upstream.prediction_url": c.Upstream.PredictionURL,
	}
	for name, raw := range upstreams {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got '%s'", name, raw)
		}
	}
	if len(c.Polling.Symbols) == 0 {
		return fmt.Errorf("polling.symbols cannot be empty")
	}
	if c.Polling.QuotesInterval <= 0 {
		return fmt.Errorf("polling.quotes_interval must be positive")
	}
	if c.Runner.MaxRetries < 0 {
		return fmt.Errorf("runner.max_retries cannot be negative")
	}
	if c.Runner.MaxKeyed <= 0 {
		return fmt.Errorf("runner.max_keyed must be positive")
	}
	if c.Upstream.RateLimitRPS <= 0 || c.Upstream.RateLimitBurst <= 0 {
		return fmt.Errorf("upstream.rate_limit_rps and rate_limit_burst must be positive")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	known := map[string]bool{"holdings": true, "allocation": true, "targets": true, "forum": true}
	for _, k := range c.Preload.Priority {
		if !known[k] {
			return fmt.Errorf("preload.priority: unknown loader '%s'", k)
		}
	}
	return nil
}

// RedisAddr resolves the Redis address.
func (r RedisConfig) RedisAddr() string {
	if r.Addr != "" {
		return r.Addr
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
