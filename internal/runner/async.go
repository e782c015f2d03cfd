package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	applogger "FinDash/pkg/logger"
)

// Async runs one producer at a time and records the result.
// A call to Execute while another is in flight is ignored.
type Async[T any] struct {
	name     string
	deps     Deps
	mu       sync.Mutex
	state    TaskState[T]
	inFlight atomic.Bool
	closed   atomic.Bool
}

// NewAsync creates an idle runner.
func NewAsync[T any](name string, deps Deps) *Async[T] {
	return &Async[T]{name: name, deps: deps.normalize(name)}
}

// Execute runs producer on the calling goroutine and reports whether it ran.
// It returns false without invoking producer when another execution is in flight
// or the runner is closed.
func (a *Async[T]) Execute(ctx context.Context, producer Producer[T]) bool {
	if a.closed.Load() {
		return false
	}
	if !a.inFlight.CompareAndSwap(false, true) {
		a.deps.Logger.Debug("execute ignored, already in flight")
		return false
	}
	defer a.inFlight.Store(false)

	a.apply(func(s *TaskState[T]) {
		s.Loading = true
		s.Error = ""
	})

	start := time.Now()
	v, err := invoke(ctx, producer)
	a.deps.Metrics.RecordLatency(a.name, time.Since(start).Seconds())

	if err != nil {
		msg := errorMessage(err)
		if !a.apply(func(s *TaskState[T]) {
			s.Error = msg
			s.Loading = false
		}) {
			a.deps.Metrics.RecordExecution(a.name, OutcomeStale)
			return true
		}
		a.deps.Metrics.RecordExecution(a.name, OutcomeError)
		a.deps.Logger.Warn("execution failed", applogger.Error(err))
		return true
	}

	if !a.apply(func(s *TaskState[T]) {
		s.Data = &v
		s.Loading = false
	}) {
		a.deps.Metrics.RecordExecution(a.name, OutcomeStale)
		return true
	}
	a.deps.Metrics.RecordExecution(a.name, OutcomeSuccess)
	return true
}

// State returns a snapshot of the current state.
func (a *Async[T]) State() TaskState[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// InFlight reports whether an execution is running.
func (a *Async[T]) InFlight() bool {
	return a.inFlight.Load()
}

// Close tears the runner down. Results that arrive afterwards are dropped.
func (a *Async[T]) Close() {
	a.mu.Lock()
	a.closed.Store(true)
	a.mu.Unlock()
}

func (a *Async[T]) apply(fn func(*TaskState[T])) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return false
	}
	fn(&a.state)
	return true
}
