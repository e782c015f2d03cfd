package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	applogger "FinDash/pkg/logger"
)

// Poller fires a producer immediately on Start and then every interval until Stop.
// Ticks may overlap when a producer outlives the interval. Results of ticks
// started before the latest Stop are discarded.
type Poller[T any] struct {
	name      string
	producer  Producer[T]
	interval  time.Duration
	deps      Deps
	scheduler gocron.Scheduler

	mu     sync.Mutex
	state  TaskState[T]
	active bool
	gen    uint64
	job    gocron.Job
	cancel context.CancelFunc
	closed bool
}

// NewPoller creates a stopped poller backed by its own scheduler.
func NewPoller[T any](name string, producer Producer[T], interval time.Duration, deps Deps) (*Poller[T], error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if producer == nil {
		return nil, fmt.Errorf("poller %s: producer is required", name)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("poller %s: interval must be positive, got %s", name, interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()

	return &Poller[T]{
		name:      name,
		producer:  producer,
		interval:  interval,
		deps:      deps.normalize(name),
		scheduler: s,
	}, nil
}

// Start schedules the producer. Calling Start while active does nothing.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("poller %s: closed", p.name)
	}
	if p.active {
		return nil
	}

	p.gen++
	gen := p.gen
	tickCtx, cancel := context.WithCancel(ctx)

	job, err := p.scheduler.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() { p.tick(tickCtx, gen) }),
		gocron.WithName(p.name+"-poll"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create poll job: %w", err)
	}

	p.job = job
	p.cancel = cancel
	p.active = true
	p.deps.Logger.Info("poller started", applogger.Duration("interval", p.interval))
	return nil
}

// Stop removes the schedule. Calling Stop while inactive does nothing.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller[T]) stopLocked() {
	if !p.active {
		return
	}
	p.gen++
	p.active = false
	p.cancel()
	if err := p.scheduler.RemoveJob(p.job.ID()); err != nil {
		p.deps.Logger.Warn("failed to remove poll job", applogger.Error(err))
	}
	p.job = nil
	p.cancel = nil
	p.state.Loading = false
	p.deps.Logger.Info("poller stopped")
}

// Active reports whether the poller is scheduled.
func (p *Poller[T]) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// State returns a snapshot of the latest tick outcome.
func (p *Poller[T]) State() TaskState[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Close stops the poller and shuts its scheduler down.
func (p *Poller[T]) Close() error {
	p.mu.Lock()
	p.stopLocked()
	p.closed = true
	p.mu.Unlock()
	return p.scheduler.Shutdown()
}

func (p *Poller[T]) tick(ctx context.Context, gen uint64) {
	if !p.apply(gen, func(s *TaskState[T]) {
		s.Loading = true
		s.Error = ""
	}) {
		return
	}

	start := time.Now()
	v, err := invoke(ctx, p.producer)
	p.deps.Metrics.RecordLatency(p.name, time.Since(start).Seconds())

	if err != nil {
		msg := errorMessage(err)
		if !p.apply(gen, func(s *TaskState[T]) {
			s.Error = msg
			s.Loading = false
		}) {
			p.deps.Metrics.RecordExecution(p.name, OutcomeStale)
			return
		}
		p.deps.Metrics.RecordExecution(p.name, OutcomeError)
		p.deps.Logger.Warn("poll tick failed", applogger.Error(err))
		return
	}

	if !p.apply(gen, func(s *TaskState[T]) {
		s.Data = &v
		s.Loading = false
	}) {
		p.deps.Metrics.RecordExecution(p.name, OutcomeStale)
		return
	}
	p.deps.Metrics.RecordExecution(p.name, OutcomeSuccess)
}

// apply mutates state only while the tick's generation is still current.
func (p *Poller[T]) apply(gen uint64, fn func(*TaskState[T])) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || p.gen != gen {
		return false
	}
	fn(&p.state)
	return true
}
