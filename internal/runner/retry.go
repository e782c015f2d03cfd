package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"FinDash/pkg/cache"
	applogger "FinDash/pkg/logger"
)

// Retrying wraps a producer with bounded constant-delay retries and optional
// read-through/write-through caching.
type Retrying[T any] struct {
	name     string
	producer Producer[T]
	cfg      RetryConfig
	deps     Deps

	mu       sync.Mutex
	state    RetryState[T]
	inFlight atomic.Bool
	closed   atomic.Bool
	mounted  initOnce
}

// NewRetrying validates opts and returns an idle runner.
func NewRetrying[T any](name string, producer Producer[T], deps Deps, opts ...RetryOption) (*Retrying[T], error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if producer == nil {
		return nil, fmt.Errorf("runner %s: producer is required", name)
	}
	cfg, err := newRetryConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("runner %s: %w", name, err)
	}
	return &Retrying[T]{
		name:     name,
		producer: producer,
		cfg:      cfg,
		deps:     deps.normalize(name),
	}, nil
}

// Mount runs Execute the first time it is called when the runner is enabled
// and auto-starts. Later calls do nothing.
func (r *Retrying[T]) Mount(ctx context.Context) {
	if !r.cfg.Enabled || !r.cfg.AutoStart {
		return
	}
	if !r.mounted.begin() {
		return
	}
	defer r.mounted.finish()
	r.Execute(ctx)
}

// Retry is Execute gated by the Enabled option.
func (r *Retrying[T]) Retry(ctx context.Context) bool {
	if !r.cfg.Enabled {
		return false
	}
	return r.Execute(ctx)
}

// Execute serves a fresh cache entry or runs the producer with retries.
// It reports whether this call did anything; a call while another is in
// flight returns false.
func (r *Retrying[T]) Execute(ctx context.Context) bool {
	if r.closed.Load() {
		return false
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		r.deps.Logger.Debug("execute ignored, already in flight")
		return false
	}
	defer r.inFlight.Store(false)

	if r.serveCached(ctx) {
		return true
	}

	r.apply(func(s *RetryState[T]) {
		s.Loading = true
		s.Error = ""
		s.RetryCount = 0
	})

	start := time.Now()
	v, err := r.attempt(ctx)
	r.deps.Metrics.RecordLatency(r.name, time.Since(start).Seconds())

	if err != nil {
		msg := errorMessage(err)
		if !r.apply(func(s *RetryState[T]) {
			s.Error = msg
			s.Loading = false
		}) {
			r.deps.Metrics.RecordExecution(r.name, OutcomeStale)
			return true
		}
		r.deps.Metrics.RecordExecution(r.name, OutcomeError)
		r.deps.Logger.Error("retries exhausted", applogger.Error(err))
		if r.cfg.OnError != nil {
			r.cfg.OnError(err)
		}
		return true
	}

	if r.cfg.CacheKey != "" {
		if cerr := r.cfg.Cache.Set(ctx, r.cfg.CacheKey, v, r.cfg.CacheTTL); cerr != nil {
			r.deps.Logger.Warn("cache write failed",
				applogger.String("key", r.cfg.CacheKey),
				applogger.Error(cerr),
			)
		}
	}

	if !r.apply(func(s *RetryState[T]) {
		s.Data = &v
		s.Error = ""
		s.Loading = false
	}) {
		r.deps.Metrics.RecordExecution(r.name, OutcomeStale)
		return true
	}
	r.deps.Metrics.RecordExecution(r.name, OutcomeSuccess)
	if r.cfg.onSuccess != nil {
		r.cfg.onSuccess(v)
	}
	return true
}

// attempt runs the producer until it succeeds, the retry budget is spent, the
// condition rejects the error or the runner is closed.
func (r *Retrying[T]) attempt(ctx context.Context) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := invoke(ctx, r.producer)
		if err == nil {
			return v, nil
		}
		if attempt >= r.cfg.MaxRetries || !r.cfg.RetryCondition(err) || r.closed.Load() {
			return v, err
		}

		retry := attempt + 1
		r.apply(func(s *RetryState[T]) { s.RetryCount = retry })
		r.deps.Metrics.RecordRetry(r.name)
		r.deps.Logger.Warn("attempt failed, retrying",
			applogger.Int("retry", retry),
			applogger.Int("max_retries", r.cfg.MaxRetries),
			applogger.Duration("delay", r.cfg.RetryDelay),
			applogger.Error(err),
		)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(retry, err)
		}

		if r.cfg.RetryDelay > 0 {
			t := time.NewTimer(r.cfg.RetryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return v, ctx.Err()
			case <-t.C:
			}
		}
	}
}

func (r *Retrying[T]) serveCached(ctx context.Context) bool {
	if r.cfg.CacheKey == "" {
		return false
	}
	v, err := cache.GetTyped[T](ctx, r.cfg.Cache, r.cfg.CacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.deps.Logger.Warn("cache read failed",
				applogger.String("key", r.cfg.CacheKey),
				applogger.Error(err),
			)
		}
		r.deps.Metrics.RecordCacheMiss(r.name)
		return false
	}

	r.deps.Metrics.RecordCacheHit(r.name)
	r.deps.Logger.Debug("cache hit", applogger.String("key", r.cfg.CacheKey))
	if r.apply(func(s *RetryState[T]) {
		s.Data = &v
		s.Error = ""
	}) {
		r.deps.Metrics.RecordExecution(r.name, OutcomeCacheHit)
	}
	return true
}

// State returns a snapshot of the current state.
func (r *Retrying[T]) State() RetryState[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// InFlight reports whether an execution is running.
func (r *Retrying[T]) InFlight() bool {
	return r.inFlight.Load()
}

// Close stops further retries and drops results that arrive afterwards.
func (r *Retrying[T]) Close() {
	r.mu.Lock()
	r.closed.Store(true)
	r.mu.Unlock()
}

func (r *Retrying[T]) apply(fn func(*RetryState[T])) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return false
	}
	fn(&r.state)
	return true
}
