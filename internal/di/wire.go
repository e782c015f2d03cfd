//go:build wireinject
// +build wireinject

package di

import (
	"FinDash/internal/domain/repository"
	"FinDash/internal/service/finapi"
	"FinDash/pkg/config"
	"FinDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideCache,
		ProvideRunnerDeps,

		// Upstream clients
		ProvideHTTPClient,
		ProvideFinAPIClient,
		wire.Bind(new(repository.PortfolioSource), new(*finapi.Client)),
		wire.Bind(new(repository.MarketSource), new(*finapi.Client)),
		wire.Bind(new(repository.ForumSource), new(*finapi.Client)),
		ProvideAnalyticsBase,
		ProvidePricePredictor,

		// Use cases
		ProvideDashboard,
		ProvideForum,

		// HTTP
		ProvideLimiter,
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
