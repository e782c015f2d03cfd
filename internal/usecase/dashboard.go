package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinDash/internal/domain/models"
	domrepo "FinDash/internal/domain/repository"
	domsvc "FinDash/internal/domain/service"
	"FinDash/internal/runner"
	derived "FinDash/internal/services/metrics"
	"FinDash/pkg/cache"
	applogger "FinDash/pkg/logger"
)

// Preload keys of the dashboard batch.
const (
	LoaderHoldings   = "holdings"
	LoaderAllocation = "allocation"
	LoaderTargets    = "targets"
	LoaderForum      = "forum"
)

// DashboardConfig tunes the dashboard runners.
type DashboardConfig struct {
	Symbols           []string
	QuotesInterval    time.Duration
	PreloadConcurrent bool
	PreloadPriority   []string
	MaxRetries        int
	RetryDelay        time.Duration
	CacheTTL          time.Duration
	RetryCondition    func(error) bool
	// MaxKeyedRunners caps the performance and prediction runners kept per kind.
	MaxKeyedRunners int
}

// Overview is the preload snapshot plus the figures derived from it.
type Overview struct {
	Preload    runner.PreloadState          `json:"preload"`
	Summary    *models.PortfolioSummary     `json:"summary,omitempty"`
	Weights    []models.HoldingWeight       `json:"weights,omitempty"`
	Deviations []models.AllocationDeviation `json:"deviations,omitempty"`
}

// DashboardUseCase owns the long-lived runners behind the dashboard.
type DashboardUseCase struct {
	portfolio domrepo.PortfolioSource
	market    domrepo.MarketSource
	predictor domsvc.PricePredictor
	cache     cache.Service
	cfg       DashboardConfig
	deps      runner.Deps
	log       *applogger.Logger
	now       func() time.Time

	preloader *runner.Preloader
	quotes    *runner.Poller[[]models.Quote]

	mu          sync.Mutex
	performance *runnerSet[*runner.Async[models.Performance]]
	predictions *runnerSet[*runner.Retrying[models.Prediction]]
}

func NewDashboardUseCase(
	portfolio domrepo.PortfolioSource,
	market domrepo.MarketSource,
	forum domrepo.ForumSource,
	predictor domsvc.PricePredictor,
	c cache.Service,
	cfg DashboardConfig,
	deps runner.Deps,
) (*DashboardUseCase, error) {
	if deps.Logger == nil {
		deps.Logger = applogger.Nop()
	}
	uc := &DashboardUseCase{
		portfolio:   portfolio,
		market:      market,
		predictor:   predictor,
		cache:       c,
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger.Component("dashboard"),
		now:         time.Now,
		performance: newRunnerSet[*runner.Async[models.Performance]](cfg.MaxKeyedRunners),
		predictions: newRunnerSet[*runner.Retrying[models.Prediction]](cfg.MaxKeyedRunners),
	}

	loaders := map[string]runner.Loader{
		LoaderHoldings: func(ctx context.Context) (any, error) {
			return portfolio.Holdings(ctx)
		},
		LoaderAllocation: func(ctx context.Context) (any, error) {
			return portfolio.Allocation(ctx)
		},
		LoaderTargets: func(ctx context.Context) (any, error) {
			return portfolio.Targets(ctx)
		},
		LoaderForum: func(ctx context.Context) (any, error) {
			return forum.ForumPosts(ctx)
		},
	}
	pre, err := runner.NewPreloader("dashboard", loaders, deps,
		runner.WithConcurrent(cfg.PreloadConcurrent),
		runner.WithPriority(cfg.PreloadPriority...),
		runner.WithOnProgress(func(loaded, total int) {
			uc.log.Info("dashboard preloaded", applogger.Int("loaded", loaded), applogger.Int("total", total))
		}),
	)
	if err != nil {
		return nil, err
	}
	uc.preloader = pre

	symbols := append([]string(nil), cfg.Symbols...)
	quotes, err := runner.NewPoller("quotes", func(ctx context.Context) ([]models.Quote, error) {
		return market.Quotes(ctx, symbols)
	}, cfg.QuotesInterval, deps)
	if err != nil {
		return nil, err
	}
	uc.quotes = quotes

	return uc, nil
}

// Start mounts the preloader in the background and starts quote polling.
func (uc *DashboardUseCase) Start(ctx context.Context) error {
	go uc.preloader.Mount(ctx)
	if err := uc.quotes.Start(ctx); err != nil {
		return fmt.Errorf("start quote polling: %w", err)
	}
	return nil
}

// Close stops polling and drops every late result.
func (uc *DashboardUseCase) Close() error {
	uc.preloader.Close()
	uc.mu.Lock()
	uc.performance.closeAll()
	uc.predictions.closeAll()
	uc.mu.Unlock()
	return uc.quotes.Close()
}

// Preloader exposes the dashboard batch for read-only consumers.
func (uc *DashboardUseCase) Preloader() *runner.Preloader {
	return uc.preloader
}

// Overview derives display figures from the current preload snapshot.
// Sections whose loaders have not succeeded are omitted.
func (uc *DashboardUseCase) Overview() Overview {
	state := uc.preloader.State()
	out := Overview{Preload: state}

	if holdings, ok := runner.PreloadValue[[]models.Holding](state, LoaderHoldings); ok {
		summary := derived.Summarize(holdings)
		out.Summary = &summary
		out.Weights = derived.Weights(holdings)
	}
	if alloc, ok := runner.PreloadValue[[]models.AssetAllocationItem](state, LoaderAllocation); ok {
		targets, _ := runner.PreloadValue[map[string]float64](state, LoaderTargets)
		out.Deviations = derived.AllocationDeviations(alloc, targets)
	}
	return out
}

// Refresh re-runs the preload batch and reports whether this call ran it.
func (uc *DashboardUseCase) Refresh(ctx context.Context) bool {
	return uc.preloader.Reload(ctx)
}

// Quotes returns the latest polled quotes.
func (uc *DashboardUseCase) Quotes() runner.TaskState[[]models.Quote] {
	return uc.quotes.State()
}

// Performance computes risk/return figures for symbol over the last days.
// A request that finds the same computation in flight returns its current state.
func (uc *DashboardUseCase) Performance(ctx context.Context, symbol string, days int) runner.TaskState[models.Performance] {
	symbol = strings.ToUpper(symbol)
	key := fmt.Sprintf("%s:%d", symbol, days)

	uc.mu.Lock()
	a, ok := uc.performance.get(key)
	if !ok {
		a = runner.NewAsync[models.Performance]("performance", uc.deps)
		uc.performance.put(key, a)
	}
	uc.mu.Unlock()

	a.Execute(ctx, func(ctx context.Context) (models.Performance, error) {
		to := uc.now()
		from := to.AddDate(0, 0, -days)
		points, err := uc.market.History(ctx, symbol, from, to)
		if err != nil {
			return models.Performance{}, err
		}
		return derived.Performance(symbol, derived.Closes(points)), nil
	})
	return a.State()
}

// PredictionCacheKey is the shared cache key of a prediction.
func PredictionCacheKey(symbol, horizon string) string {
	return cache.GenerateKeyWithParams("prediction", strings.ToUpper(symbol), horizon)
}

// Predict fetches a prediction with retries, served from cache while fresh.
func (uc *DashboardUseCase) Predict(ctx context.Context, symbol, horizon string) (runner.RetryState[models.Prediction], error) {
	symbol = strings.ToUpper(symbol)
	key := PredictionCacheKey(symbol, horizon)

	uc.mu.Lock()
	r, ok := uc.predictions.get(key)
	if !ok {
		opts := []runner.RetryOption{
			runner.WithMaxRetries(uc.cfg.MaxRetries),
			runner.WithRetryDelay(uc.cfg.RetryDelay),
			runner.WithCache(uc.cache, key, uc.cfg.CacheTTL),
			runner.WithAutoStart(false),
			runner.WithOnSuccess(func(p models.Prediction) {
				uc.log.Debug("prediction refreshed",
					applogger.String("symbol", p.Symbol),
					applogger.String("horizon", p.Horizon),
					applogger.Float64("price", p.PredictedPrice),
				)
			}),
		}
		if uc.cfg.RetryCondition != nil {
			opts = append(opts, runner.WithRetryCondition(uc.cfg.RetryCondition))
		}
		created, err := runner.NewRetrying("prediction", func(ctx context.Context) (models.Prediction, error) {
			return uc.predictor.Predict(ctx, symbol, horizon)
		}, uc.deps, opts...)
		if err != nil {
			uc.mu.Unlock()
			return runner.RetryState[models.Prediction]{}, err
		}
		r = created
		uc.predictions.put(key, r)
	}
	uc.mu.Unlock()

	r.Retry(ctx)
	return r.State(), nil
}
