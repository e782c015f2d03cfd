package runner

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	applogger "FinDash/pkg/logger"
)

// Loader is one named, independent unit of a preload batch.
type Loader func(ctx context.Context) (any, error)

// Progress counts settled-successful loaders against the batch size.
type Progress struct {
	Loaded int `json:"loaded"`
	Total  int `json:"total"`
}

// PreloadState is the aggregated outcome of a preload pass.
type PreloadState struct {
	Data       map[string]any    `json:"data"`
	Loading    map[string]bool   `json:"loading"`
	Errors     map[string]string `json:"errors"`
	Progress   Progress          `json:"progress"`
	IsComplete bool              `json:"is_complete"`
}

// PreloadValue extracts a typed result from a state snapshot.
func PreloadValue[T any](s PreloadState, key string) (T, bool) {
	v, ok := s.Data[key].(T)
	return v, ok
}

// Preloader runs a fixed set of loaders with per-key fault isolation.
type Preloader struct {
	name    string
	loaders map[string]Loader
	order   []string
	cfg     PreloadConfig
	deps    Deps

	mu       sync.Mutex
	state    PreloadState
	inFlight atomic.Bool
	closed   atomic.Bool
	mounted  initOnce
}

// NewPreloader copies loaders; later changes to the caller's map have no effect.
func NewPreloader(name string, loaders map[string]Loader, deps Deps, opts ...PreloadOption) (*Preloader, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(loaders))
	for k, l := range loaders {
		if l == nil {
			return nil, fmt.Errorf("preloader %s: loader %q is nil", name, k)
		}
		keys[k] = struct{}{}
	}
	cfg, err := newPreloadConfig(keys, opts...)
	if err != nil {
		return nil, fmt.Errorf("preloader %s: %w", name, err)
	}

	p := &Preloader{
		name:    name,
		loaders: maps.Clone(loaders),
		order:   launchOrder(cfg.Priority, keys),
		cfg:     cfg,
		deps:    deps.normalize(name),
	}
	p.state = PreloadState{
		Data:     make(map[string]any, len(loaders)),
		Loading:  make(map[string]bool, len(loaders)),
		Errors:   make(map[string]string),
		Progress: Progress{Total: len(loaders)},
	}
	return p, nil
}

// launchOrder lists priority keys first, then the rest sorted.
func launchOrder(priority []string, keys map[string]struct{}) []string {
	order := make([]string, 0, len(keys))
	listed := make(map[string]struct{}, len(priority))
	for _, k := range priority {
		order = append(order, k)
		listed[k] = struct{}{}
	}
	rest := make([]string, 0, len(keys)-len(priority))
	for k := range keys {
		if _, ok := listed[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Mount runs Reload the first time it is called.
func (p *Preloader) Mount(ctx context.Context) {
	if !p.mounted.begin() {
		return
	}
	defer p.mounted.finish()
	p.Reload(ctx)
}

// Reload runs every loader and waits for all of them to settle.
// It returns false when a pass is already running or the preloader is closed.
func (p *Preloader) Reload(ctx context.Context) bool {
	if p.closed.Load() {
		return false
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		p.deps.Logger.Debug("reload ignored, already in flight")
		return false
	}
	defer p.inFlight.Store(false)

	p.apply(func(s *PreloadState) {
		for _, k := range p.order {
			s.Loading[k] = true
		}
		clear(s.Errors)
		s.Progress = Progress{Total: len(p.order)}
		s.IsComplete = false
	})

	start := time.Now()
	var g errgroup.Group
	if !p.cfg.Concurrent {
		g.SetLimit(1)
	}
	for _, key := range p.order {
		load := p.loaders[key]
		g.Go(func() error {
			p.settle(ctx, key, load)
			return nil
		})
	}
	_ = g.Wait()
	p.deps.Metrics.RecordLatency(p.name, time.Since(start).Seconds())

	var final Progress
	if !p.apply(func(s *PreloadState) {
		for _, k := range p.order {
			s.Loading[k] = false
		}
		s.IsComplete = true
		final = s.Progress
	}) {
		return true
	}

	p.deps.Metrics.RecordPreloadProgress(final.Loaded, final.Total)
	p.deps.Logger.Info("preload complete",
		applogger.Int("loaded", final.Loaded),
		applogger.Int("total", final.Total),
	)
	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(final.Loaded, final.Total)
	}
	return true
}

func (p *Preloader) settle(ctx context.Context, key string, load Loader) {
	v, err := invoke(ctx, Producer[any](load))
	if err != nil {
		msg := errorMessage(err)
		if p.apply(func(s *PreloadState) {
			s.Errors[key] = msg
			delete(s.Data, key)
			s.Loading[key] = false
		}) {
			p.deps.Metrics.RecordExecution(p.name, OutcomeError)
			p.deps.Logger.Warn("preload failed",
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
		return
	}
	if p.apply(func(s *PreloadState) {
		s.Data[key] = v
		s.Loading[key] = false
		s.Progress.Loaded++
	}) {
		p.deps.Metrics.RecordExecution(p.name, OutcomeSuccess)
	}
}

// State returns a deep snapshot of the current state.
func (p *Preloader) State() PreloadState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PreloadState{
		Data:       maps.Clone(p.state.Data),
		Loading:    maps.Clone(p.state.Loading),
		Errors:     maps.Clone(p.state.Errors),
		Progress:   p.state.Progress,
		IsComplete: p.state.IsComplete,
	}
}

// Keys returns the loader keys in launch order.
func (p *Preloader) Keys() []string {
	return append([]string(nil), p.order...)
}

// InFlight reports whether a pass is running.
func (p *Preloader) InFlight() bool {
	return p.inFlight.Load()
}

// Close drops every result that arrives afterwards.
func (p *Preloader) Close() {
	p.mu.Lock()
	p.closed.Store(true)
	p.mu.Unlock()
}

func (p *Preloader) apply(fn func(*PreloadState)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return false
	}
	fn(&p.state)
	return true
}
