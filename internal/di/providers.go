package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"FinDash/internal/domain/repository"
	"FinDash/internal/domain/service"
	"FinDash/internal/handler/api"
	"FinDash/internal/runner"
	"FinDash/internal/service/finapi"
	svcmetrics "FinDash/internal/service/metrics"
	"FinDash/internal/service/ratelimit"
	analytics "FinDash/internal/services/analytics"
	"FinDash/internal/usecase"
	"FinDash/pkg/cache"
	"FinDash/pkg/config"
	xhttp "FinDash/pkg/http"
	applogger "FinDash/pkg/logger"
	"FinDash/pkg/metrics"
	"FinDash/pkg/server"
)

// ProvideLogger creates the root logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry. Nil when metrics are disabled.
func ProvideRegistry(cfg *config.Config) *prometheus.Registry {
	if !cfg.Metrics.Enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	if reg == nil {
		return repository.NopMetrics{}
	}
	return metrics.New(reg)
}

// ProvideCache creates the in-memory cache, layered over Redis when enabled.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	rc := cfg.Cache.Redis
	if !rc.Enabled {
		mem := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.DefaultTTL),
		)
		return mem, func() { _ = mem.Close() }, nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisAddr(rc.RedisAddr()),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Component("cache").Info("redis cache connected", applogger.String("addr", rc.RedisAddr()))

	layered := cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(cfg.Cache.MaxSize))
	return layered, func() { _ = layered.Close() }, nil
}

// ProvideHTTPClient creates the upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.Timeout))
}

// ProvideFinAPIClient creates the portfolio/market/forum client.
func ProvideFinAPIClient(cfg *config.Config, hc *xhttp.Client, log *applogger.Logger) *finapi.Client {
	return finapi.New(finapi.Endpoints{
		PortfolioURL: cfg.Upstream.PortfolioURL,
		MarketURL:    cfg.Upstream.MarketURL,
		ForumURL:     cfg.Upstream.ForumURL,
	}, hc, log)
}

// ProvideAnalyticsBase creates the breaker-guarded model service client.
func ProvideAnalyticsBase(cfg *config.Config, reg *prometheus.Registry, log *applogger.Logger) *analytics.HTTPServiceBase {
	base := analytics.NewHTTPServiceBase(cfg, log)
	if reg != nil {
		base.WithMetrics(svcmetrics.NewUpstream(reg))
	}
	return base
}

// ProvidePricePredictor creates the prediction adapter.
func ProvidePricePredictor(base *analytics.HTTPServiceBase) service.PricePredictor {
	return analytics.NewHTTPPricePredictor(base)
}

// ProvideRunnerDeps bundles the ambient runner collaborators.
func ProvideRunnerDeps(log *applogger.Logger, m repository.Metrics) runner.Deps {
	return runner.Deps{Logger: log, Metrics: m}
}

// ProvideDashboard creates the dashboard use case. App stops its runners on shutdown.
func ProvideDashboard(
	cfg *config.Config,
	portfolio repository.PortfolioSource,
	market repository.MarketSource,
	forum repository.ForumSource,
	predictor service.PricePredictor,
	c cache.Service,
	deps runner.Deps,
) (*usecase.DashboardUseCase, error) {
	uc, err := usecase.NewDashboardUseCase(portfolio, market, forum, predictor, c, usecase.DashboardConfig{
		Symbols:           cfg.Polling.Symbols,
		QuotesInterval:    cfg.Polling.QuotesInterval,
		PreloadConcurrent: cfg.Preload.Concurrent,
		PreloadPriority:   cfg.Preload.Priority,
		MaxRetries:        cfg.Runner.MaxRetries,
		RetryDelay:        cfg.Runner.RetryDelay,
		CacheTTL:          cfg.Runner.CacheTTL,
		RetryCondition:    analytics.Retryable,
		MaxKeyedRunners:   cfg.Runner.MaxKeyed,
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return uc, nil
}

// ProvideForum creates the forum use case backed by the dashboard preload.
func ProvideForum(forum repository.ForumSource, dashboard *usecase.DashboardUseCase) *usecase.ForumUseCase {
	return usecase.NewForumUseCase(forum, dashboard.Preloader())
}

// ProvideLimiter creates the per-client API rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Upstream.RateLimitRPS, cfg.Upstream.RateLimitBurst)
}

// ProvideHandler creates the HTTP route handler.
func ProvideHandler(
	log *applogger.Logger,
	dashboard *usecase.DashboardUseCase,
	forum *usecase.ForumUseCase,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewDashboardEchoHandler(log, dashboard, forum, limiter)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	handler xhttp.Handler,
	reg *prometheus.Registry,
	log *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithLogger(log),
	}
	if reg != nil {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	dashboard *usecase.DashboardUseCase,
	httpServer *xhttp.Server,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, log, dashboard, httpServer, limiter)
}
