package runner

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"FinDash/pkg/cache"
)

var validate = validator.New()

// RetryConfig enumerates every option of a Retrying runner. Defaults come from the
// struct tags and are applied before options; the result is validated once.
type RetryConfig struct {
	MaxRetries int           `default:"3" validate:"gte=0,lte=100"`
	RetryDelay time.Duration `default:"1s" validate:"gte=0"`
	CacheKey   string
	CacheTTL   time.Duration `default:"5m" validate:"gt=0"`
	Enabled    bool          `default:"true"`
	AutoStart  bool          `default:"true"`

	// Cache must be set when CacheKey is.
	Cache cache.Service

	RetryCondition func(err error) bool
	OnRetry        func(attempt int, err error)
	OnError        func(err error)

	onSuccess func(v any)
}

// RetryOption configures a Retrying runner.
type RetryOption func(*RetryConfig)

// WithMaxRetries sets how many retries follow the initial attempt.
func WithMaxRetries(n int) RetryOption {
	return func(c *RetryConfig) { c.MaxRetries = n }
}

// WithRetryDelay sets the constant wait between attempts.
func WithRetryDelay(d time.Duration) RetryOption {
	return func(c *RetryConfig) { c.RetryDelay = d }
}

// WithRetryCondition decides per error whether another attempt is made.
func WithRetryCondition(fn func(err error) bool) RetryOption {
	return func(c *RetryConfig) { c.RetryCondition = fn }
}

// WithOnRetry is called before each wait with the 1-based retry number.
func WithOnRetry(fn func(attempt int, err error)) RetryOption {
	return func(c *RetryConfig) { c.OnRetry = fn }
}

// WithOnError is called once with the terminal error.
func WithOnError(fn func(err error)) RetryOption {
	return func(c *RetryConfig) { c.OnError = fn }
}

// WithOnSuccess is called with every freshly produced value. Cache hits do not call it.
func WithOnSuccess[T any](fn func(v T)) RetryOption {
	return func(c *RetryConfig) {
		if fn == nil {
			c.onSuccess = nil
			return
		}
		c.onSuccess = func(v any) {
			if tv, ok := v.(T); ok {
				fn(tv)
			}
		}
	}
}

// WithCache enables read-through/write-through caching of results under key.
func WithCache(c cache.Service, key string, ttl time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.Cache = c
		cfg.CacheKey = key
		if ttl > 0 {
			cfg.CacheTTL = ttl
		}
	}
}

// WithEnabled gates Retry and the mount-time run.
func WithEnabled(enabled bool) RetryOption {
	return func(c *RetryConfig) { c.Enabled = enabled }
}

// WithAutoStart controls whether Mount runs the producer.
func WithAutoStart(auto bool) RetryOption {
	return func(c *RetryConfig) { c.AutoStart = auto }
}

func newRetryConfig(opts ...RetryOption) (RetryConfig, error) {
	var cfg RetryConfig
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("retry config defaults: %w", err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validate.Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("retry config: %w", err)
	}
	if cfg.CacheKey != "" && cfg.Cache == nil {
		return cfg, fmt.Errorf("retry config: cache key %q set without a cache", cfg.CacheKey)
	}
	if cfg.RetryCondition == nil {
		cfg.RetryCondition = func(error) bool { return true }
	}
	return cfg, nil
}

// PreloadConfig enumerates every option of a Preloader.
type PreloadConfig struct {
	// Priority orders launch; keys not listed follow in lexical order.
	Priority   []string
	Concurrent bool `default:"true"`
	OnProgress func(loaded, total int)
}

// PreloadOption configures a Preloader.
type PreloadOption func(*PreloadConfig)

// WithPriority sets the launch order hint.
func WithPriority(keys ...string) PreloadOption {
	return func(c *PreloadConfig) { c.Priority = append([]string(nil), keys...) }
}

// WithConcurrent toggles concurrent loading. When false, loaders run one by one in priority order.
func WithConcurrent(concurrent bool) PreloadOption {
	return func(c *PreloadConfig) { c.Concurrent = concurrent }
}

// WithOnProgress is called once per pass with the final counts.
func WithOnProgress(fn func(loaded, total int)) PreloadOption {
	return func(c *PreloadConfig) { c.OnProgress = fn }
}

func newPreloadConfig(keys map[string]struct{}, opts ...PreloadOption) (PreloadConfig, error) {
	var cfg PreloadConfig
	if err := defaults.Set(&cfg); err != nil {
		return cfg, fmt.Errorf("preload config defaults: %w", err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	seen := make(map[string]struct{}, len(cfg.Priority))
	for _, k := range cfg.Priority {
		if _, ok := keys[k]; !ok {
			return cfg, fmt.Errorf("preload config: priority key %q has no loader", k)
		}
		if _, dup := seen[k]; dup {
			return cfg, fmt.Errorf("preload config: priority key %q listed twice", k)
		}
		seen[k] = struct{}{}
	}
	return cfg, nil
}
