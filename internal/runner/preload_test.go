package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloader_FaultIsolation(t *testing.T) {
	metrics := newCountingMetrics()
	var progress [][2]int
	p, err := NewPreloader("batch", map[string]Loader{
		"a": func(context.Context) (any, error) { return 1, nil },
		"b": func(context.Context) (any, error) { return nil, errors.New("x") },
	}, Deps{Metrics: metrics}, WithOnProgress(func(loaded, total int) {
		progress = append(progress, [2]int{loaded, total})
	}))
	require.NoError(t, err)

	require.True(t, p.Reload(context.Background()))

	s := p.State()
	assert.Equal(t, 1, s.Data["a"])
	_, hasB := s.Data["b"]
	assert.False(t, hasB)
	assert.Equal(t, "x", s.Errors["b"])
	assert.Equal(t, Progress{Loaded: 1, Total: 2}, s.Progress)
	assert.True(t, s.IsComplete)
	assert.False(t, s.Loading["a"])
	assert.False(t, s.Loading["b"])
	assert.Equal(t, [][2]int{{1, 2}}, progress, "onProgress fires once with final counts")
	assert.Equal(t, 1, metrics.loaded)
	assert.Equal(t, 2, metrics.total)
}

func TestPreloader_SlowLoaderSettlesLast(t *testing.T) {
	release := make(chan struct{})
	p, err := NewPreloader("dashboard", map[string]Loader{
		"fast1": func(context.Context) (any, error) { return "a", nil },
		"fast2": func(context.Context) (any, error) { return "b", nil },
		"slow": func(context.Context) (any, error) {
			select {
			case <-release:
			case <-time.After(500 * time.Millisecond):
			}
			return "c", nil
		},
	}, Deps{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Mount(context.Background())
	}()

	require.Eventually(t, func() bool { return p.State().Progress.Loaded == 2 }, time.Second, time.Millisecond)
	s := p.State()
	assert.False(t, s.IsComplete, "complete only after the slow loader settles")
	assert.True(t, s.Loading["slow"])
	assert.False(t, s.Loading["fast1"])

	close(release)
	<-done

	s = p.State()
	assert.Equal(t, 3, s.Progress.Loaded)
	assert.True(t, s.IsComplete)
	assert.Equal(t, "c", s.Data["slow"])
}

func TestPreloader_SequentialFollowsPriority(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(key string) Loader {
		return func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, key)
			mu.Unlock()
			return key, nil
		}
	}

	p, err := NewPreloader("ordered", map[string]Loader{
		"alpha":   record("alpha"),
		"beta":    record("beta"),
		"gamma":   record("gamma"),
		"holding": record("holding"),
	}, Deps{}, WithConcurrent(false), WithPriority("holding", "gamma"))
	require.NoError(t, err)

	p.Reload(context.Background())
	assert.Equal(t, []string{"holding", "gamma", "alpha", "beta"}, order)
	assert.Equal(t, []string{"holding", "gamma", "alpha", "beta"}, p.Keys())
}

func TestPreloader_MountRunsOnceReloadRuns(t *testing.T) {
	var calls atomic.Int32
	loaders := map[string]Loader{
		"only": func(context.Context) (any, error) { return int(calls.Add(1)), nil },
	}
	p, err := NewPreloader("mount", loaders, Deps{})
	require.NoError(t, err)

	// replacing the caller's map must not affect the preloader
	loaders["only"] = func(context.Context) (any, error) { return -1, nil }

	ctx := context.Background()
	p.Mount(ctx)
	p.Mount(ctx)
	assert.Equal(t, int32(1), calls.Load())

	p.Reload(ctx)
	assert.Equal(t, int32(2), calls.Load())
	v, ok := PreloadValue[int](p.State(), "only")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestPreloader_ReloadResetsErrorsAndProgress(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	p, err := NewPreloader("reset", map[string]Loader{
		"flaky": func(context.Context) (any, error) {
			if fail.Load() {
				return nil, errors.New("first pass fails")
			}
			return "ok", nil
		},
	}, Deps{})
	require.NoError(t, err)

	ctx := context.Background()
	p.Reload(ctx)
	assert.Equal(t, "first pass fails", p.State().Errors["flaky"])
	assert.Equal(t, 0, p.State().Progress.Loaded)

	fail.Store(false)
	p.Reload(ctx)
	s := p.State()
	assert.Empty(t, s.Errors)
	assert.Equal(t, Progress{Loaded: 1, Total: 1}, s.Progress)
}

func TestPreloader_FailureDropsPreviousData(t *testing.T) {
	var fail atomic.Bool
	p, err := NewPreloader("drop", map[string]Loader{
		"k": func(context.Context) (any, error) {
			if fail.Load() {
				return nil, errors.New("gone")
			}
			return 5, nil
		},
	}, Deps{})
	require.NoError(t, err)

	ctx := context.Background()
	p.Reload(ctx)
	assert.Equal(t, 5, p.State().Data["k"])

	fail.Store(true)
	p.Reload(ctx)
	_, ok := p.State().Data["k"]
	assert.False(t, ok)
}

func TestPreloader_PanickingLoaderIsIsolated(t *testing.T) {
	p, err := NewPreloader("panic", map[string]Loader{
		"good": func(context.Context) (any, error) { return true, nil },
		"bad":  func(context.Context) (any, error) { panic(42) },
	}, Deps{})
	require.NoError(t, err)

	p.Reload(context.Background())
	s := p.State()
	assert.Equal(t, "unknown error", s.Errors["bad"])
	assert.Equal(t, true, s.Data["good"])
	assert.True(t, s.IsComplete)
}

func TestPreloader_SingleFlightAndClose(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	p, err := NewPreloader("guarded", map[string]Loader{
		"slow": func(context.Context) (any, error) {
			calls.Add(1)
			<-release
			return 1, nil
		},
	}, Deps{})
	require.NoError(t, err)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Reload(ctx)
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, p.Reload(ctx))

	p.Close()
	close(release)
	<-done

	s := p.State()
	assert.False(t, s.IsComplete)
	assert.Empty(t, s.Data)
	assert.False(t, p.Reload(ctx))
}

func TestPreloader_StateIsSnapshot(t *testing.T) {
	p, err := NewPreloader("snap", map[string]Loader{
		"a": func(context.Context) (any, error) { return 1, nil },
	}, Deps{})
	require.NoError(t, err)
	p.Reload(context.Background())

	s := p.State()
	s.Data["a"] = 99
	assert.Equal(t, 1, p.State().Data["a"])
}

func TestNewPreloader_Validation(t *testing.T) {
	ok := func(context.Context) (any, error) { return nil, nil }

	_, err := NewPreloader("nil-loader", map[string]Loader{"a": nil}, Deps{})
	assert.Error(t, err)

	_, err = NewPreloader("unknown", map[string]Loader{"a": ok}, Deps{}, WithPriority("b"))
	assert.Error(t, err)

	_, err = NewPreloader("dup", map[string]Loader{"a": ok}, Deps{}, WithPriority("a", "a"))
	assert.Error(t, err)

	p, err := NewPreloader("empty", nil, Deps{})
	require.NoError(t, err)
	p.Reload(context.Background())
	assert.True(t, p.State().IsComplete)
	assert.Equal(t, Progress{}, p.State().Progress)
}
