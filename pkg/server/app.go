package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinDash/internal/service/ratelimit"
	"FinDash/internal/usecase"
	"FinDash/pkg/config"
	xhttp "FinDash/pkg/http"
	applogger "FinDash/pkg/logger"
)

// limiterIdle is how long a client bucket may sit unused before it is pruned.
const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	dashboard  *usecase.DashboardUseCase
	httpServer *xhttp.Server
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	dashboard *usecase.DashboardUseCase,
	httpServer *xhttp.Server,
	limiter *ratelimit.Limiter,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log.Component("app"),
		dashboard:  dashboard,
		httpServer: httpServer,
		limiter:    limiter,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.dashboard.Start(ctx); err != nil {
		a.log.Error("dashboard start error", applogger.Error(err))
		return err
	}
	a.log.Info("dashboard started",
		applogger.Strings("symbols", a.cfg.Polling.Symbols),
		applogger.Duration("quotes_interval", a.cfg.Polling.QuotesInterval),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	go a.pruneLimiter(ctx)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	if a.limiter == nil {
		return
	}
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.log.Debug("pruned idle rate limiters", applogger.Int("count", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.dashboard.Close(); err != nil {
		a.log.Warn("dashboard stop error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
