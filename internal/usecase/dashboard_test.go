package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinDash/internal/domain/models"
	"FinDash/internal/runner"
	"FinDash/pkg/cache"
)

type fakePortfolio struct {
	holdings    []models.Holding
	allocation  []models.AssetAllocationItem
	targets     map[string]float64
	targetsErr  error
	holdingHits atomic.Int32
}

func (f *fakePortfolio) Holdings(context.Context) ([]models.Holding, error) {
	f.holdingHits.Add(1)
	return f.holdings, nil
}

func (f *fakePortfolio) Allocation(context.Context) ([]models.AssetAllocationItem, error) {
	return f.allocation, nil
}

func (f *fakePortfolio) Targets(context.Context) (map[string]float64, error) {
	return f.targets, f.targetsErr
}

type fakeMarket struct {
	mu          sync.Mutex
	history     []models.PricePoint
	historyHits int
	quoteHits   atomic.Int32
}

func (f *fakeMarket) Quote(_ context.Context, symbol string) (models.Quote, error) {
	return models.Quote{Symbol: symbol, Price: 10}, nil
}

func (f *fakeMarket) Quotes(_ context.Context, symbols []string) ([]models.Quote, error) {
	f.quoteHits.Add(1)
	out := make([]models.Quote, len(symbols))
	for i, s := range symbols {
		out[i] = models.Quote{Symbol: s, Price: 10}
	}
	return out, nil
}

func (f *fakeMarket) History(context.Context, string, time.Time, time.Time) ([]models.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyHits++
	return f.history, nil
}

type fakePredictor struct {
	calls atomic.Int32
	fail  atomic.Int32
}

func (f *fakePredictor) Predict(_ context.Context, symbol, horizon string) (models.Prediction, error) {
	f.calls.Add(1)
	if f.fail.Load() > 0 {
		f.fail.Add(-1)
		return models.Prediction{}, errors.New("model warming up")
	}
	return models.Prediction{Symbol: symbol, Horizon: horizon, PredictedPrice: 123}, nil
}

func newDashboard(t *testing.T, p *fakePortfolio, m *fakeMarket, pred *fakePredictor) *DashboardUseCase {
	t.Helper()
	uc, err := NewDashboardUseCase(p, m, &stubForum{posts: samplePosts()}, pred, cache.NewMemoryCache(),
		DashboardConfig{
			Symbols:           []string{"AAPL", "MSFT"},
			QuotesInterval:    time.Hour,
			PreloadConcurrent: true,
			PreloadPriority:   []string{LoaderHoldings},
			MaxRetries:        2,
			RetryDelay:        time.Millisecond,
			CacheTTL:          time.Minute,
		}, runner.Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = uc.Close() })
	return uc
}

func TestDashboard_OverviewDerivesFigures(t *testing.T) {
	p := &fakePortfolio{
		holdings: []models.Holding{
			{Symbol: "AAPL", MarketValue: 100, CostBasis: 80},
			{Symbol: "MSFT", MarketValue: 300, CostBasis: 320},
			{Symbol: "NVDA", MarketValue: 600, CostBasis: 400},
		},
		allocation: []models.AssetAllocationItem{
			{Category: "equity", Percentage: 62},
			{Category: "bonds", Percentage: 38},
		},
		targets: map[string]float64{"equity": 55, "bonds": 45},
	}
	uc := newDashboard(t, p, &fakeMarket{}, &fakePredictor{})

	require.True(t, uc.Refresh(context.Background()))
	ov := uc.Overview()

	assert.True(t, ov.Preload.IsComplete)
	assert.Equal(t, runner.Progress{Loaded: 4, Total: 4}, ov.Preload.Progress)
	require.NotNil(t, ov.Summary)
	assert.Equal(t, 1000.0, ov.Summary.TotalValue)
	require.Len(t, ov.Weights, 3)
	assert.InDelta(t, 60.0, ov.Weights[2].Weight, 1e-9)
	require.Len(t, ov.Deviations, 2)
	assert.Equal(t, models.AllocationOver, ov.Deviations[0].Status)
	assert.Equal(t, models.AllocationUnder, ov.Deviations[1].Status)
}

func TestDashboard_PartialFailureKeepsOtherSections(t *testing.T) {
	p := &fakePortfolio{
		holdings:   []models.Holding{{Symbol: "AAPL", MarketValue: 100}},
		allocation: []models.AssetAllocationItem{{Category: "equity", Percentage: 100}},
		targetsErr: errors.New("targets unavailable"),
	}
	uc := newDashboard(t, p, &fakeMarket{}, &fakePredictor{})

	uc.Refresh(context.Background())
	ov := uc.Overview()

	assert.Equal(t, "targets unavailable", ov.Preload.Errors[LoaderTargets])
	assert.Equal(t, 3, ov.Preload.Progress.Loaded)
	require.Len(t, ov.Deviations, 1)
	assert.Equal(t, 0.0, ov.Deviations[0].Target)
	assert.NotNil(t, ov.Summary)
}

func TestDashboard_StartMountsOnceAndPolls(t *testing.T) {
	p := &fakePortfolio{}
	m := &fakeMarket{}
	uc := newDashboard(t, p, m, &fakePredictor{})

	ctx := context.Background()
	require.NoError(t, uc.Start(ctx))
	require.Eventually(t, func() bool { return uc.Overview().Preload.IsComplete }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return uc.Quotes().Data != nil }, time.Second, time.Millisecond)

	quotes := *uc.Quotes().Data
	assert.Equal(t, "MSFT", quotes[1].Symbol)
	assert.Equal(t, int32(1), p.holdingHits.Load())

	uc.Preloader().Mount(ctx)
	assert.Equal(t, int32(1), p.holdingHits.Load(), "mount does not re-run")
}

func TestDashboard_Performance(t *testing.T) {
	m := &fakeMarket{history: []models.PricePoint{{Close: 100}, {Close: 120}, {Close: 90}, {Close: 110}}}
	uc := newDashboard(t, &fakePortfolio{}, m, &fakePredictor{})

	s := uc.Performance(context.Background(), "aapl", 30)
	require.NotNil(t, s.Data)
	assert.Equal(t, "AAPL", s.Data.Symbol)
	assert.InDelta(t, 25.0, s.Data.MaxDrawdown, 1e-9)
	assert.Equal(t, 4, s.Data.Samples)
	assert.Empty(t, s.Error)
}

func TestDashboard_PredictRetriesThenCaches(t *testing.T) {
	pred := &fakePredictor{}
	pred.fail.Store(1)
	uc := newDashboard(t, &fakePortfolio{}, &fakeMarket{}, pred)
	ctx := context.Background()

	s, err := uc.Predict(ctx, "aapl", "1d")
	require.NoError(t, err)
	require.NotNil(t, s.Data)
	assert.Equal(t, 123.0, s.Data.PredictedPrice)
	assert.Equal(t, 1, s.RetryCount)
	assert.Equal(t, int32(2), pred.calls.Load())

	s, err = uc.Predict(ctx, "AAPL", "1d")
	require.NoError(t, err)
	assert.Equal(t, int32(2), pred.calls.Load(), "second request served from cache")
	assert.Equal(t, "AAPL", s.Data.Symbol)

	cached, err := cache.GetTyped[models.Prediction](ctx, uc.cache, PredictionCacheKey("aapl", "1d"))
	require.NoError(t, err)
	assert.Equal(t, 123.0, cached.PredictedPrice)
}

func TestDashboard_KeyedRunnersStayBounded(t *testing.T) {
	m := &fakeMarket{history: []models.PricePoint{{Close: 100}, {Close: 110}}}
	uc, err := NewDashboardUseCase(&fakePortfolio{}, m, &stubForum{}, &fakePredictor{}, cache.NewMemoryCache(),
		DashboardConfig{
			Symbols:         []string{"AAPL"},
			QuotesInterval:  time.Hour,
			RetryDelay:      time.Millisecond,
			CacheTTL:        time.Minute,
			MaxKeyedRunners: 8,
		}, runner.Deps{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = uc.Close() })

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		sym := fmt.Sprintf("S%d", i)
		uc.Performance(ctx, sym, 30)
		_, err := uc.Predict(ctx, sym, "1d")
		require.NoError(t, err)
	}

	uc.mu.Lock()
	perf, pred := uc.performance.len(), uc.predictions.len()
	uc.mu.Unlock()
	assert.Equal(t, 8, perf)
	assert.Equal(t, 8, pred)

	s := uc.Performance(ctx, "S0", 30)
	require.NotNil(t, s.Data, "an evicted key is rebuilt on demand")
}

func TestPredictionCacheKey(t *testing.T) {
	assert.Equal(t, "prediction:AAPL:1w", PredictionCacheKey("aapl", "1w"))
}
