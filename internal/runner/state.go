// Package runner executes caller-supplied producers and keeps their outcome as
// observable state. Runners never return producer errors to the caller; failures
// end up as a message on the owning state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"FinDash/internal/domain/repository"
	applogger "FinDash/pkg/logger"
)

// ErrUnknown replaces failures that carry no usable message, including panics with non-error values.
var ErrUnknown = errors.New("unknown error")

// Producer is a zero-argument unit of work. The context is the caller's.
type Producer[T any] func(ctx context.Context) (T, error)

// TaskState is the observable outcome of a runner. Data is nil until the first success.
type TaskState[T any] struct {
	Data    *T     `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// RetryState adds the retry counter of the current execution.
type RetryState[T any] struct {
	TaskState[T]
	RetryCount int `json:"retry_count"`
}

// Deps carries the ambient collaborators shared by all runners. Zero value is usable.
type Deps struct {
	Logger  *applogger.Logger
	Metrics repository.Metrics
}

func (d Deps) normalize(name string) Deps {
	if d.Logger == nil {
		d.Logger = applogger.Nop()
	}
	d.Logger = d.Logger.Component("runner").With(applogger.String("runner", name))
	if d.Metrics == nil {
		d.Metrics = repository.NopMetrics{}
	}
	return d
}

// Execution outcomes reported to Metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCacheHit = "cache_hit"
	OutcomeStale    = "stale"
)

type phase int32

const (
	phaseNotStarted phase = iota
	phaseRunning
	phaseDone
)

// initOnce gates the mount-time run: NotStarted -> Running -> Done, never backwards.
type initOnce struct {
	p atomic.Int32
}

func (o *initOnce) begin() bool {
	return o.p.CompareAndSwap(int32(phaseNotStarted), int32(phaseRunning))
}

func (o *initOnce) finish() {
	o.p.Store(int32(phaseDone))
}

func (o *initOnce) current() phase {
	return phase(o.p.Load())
}

// invoke runs p and turns a panic into an error.
func invoke[T any](ctx context.Context, p Producer[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = ErrUnknown
		}
	}()
	return p(ctx)
}

// errorMessage coerces err into the string stored on state.
func errorMessage(err error) string {
	if err == nil {
		return ErrUnknown.Error()
	}
	msg := err.Error()
	if msg == "" {
		return ErrUnknown.Error()
	}
	return msg
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("runner: name is required")
	}
	return nil
}
