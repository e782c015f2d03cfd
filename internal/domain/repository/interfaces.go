package repository

import (
	"context"
	"time"

	"FinDash/internal/domain/models"
)

// PortfolioSource serves holdings and allocation snapshots.
type PortfolioSource interface {
	Holdings(ctx context.Context) ([]models.Holding, error)
	Allocation(ctx context.Context) ([]models.AssetAllocationItem, error)
	Targets(ctx context.Context) (map[string]float64, error)
}

// MarketSource serves quotes and price history.
type MarketSource interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	Quotes(ctx context.Context, symbols []string) ([]models.Quote, error)
	History(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
}

// ForumSource serves community posts.
type ForumSource interface {
	ForumPosts(ctx context.Context) ([]models.ForumPost, error)
}

type Metrics interface {
	RecordExecution(runner, outcome string)
	RecordRetry(runner string)
	RecordCacheHit(runner string)
	RecordCacheMiss(runner string)
	RecordLatency(op string, seconds float64)
	RecordPreloadProgress(loaded, total int)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordExecution(string, string) {}
func (NopMetrics) RecordRetry(string)             {}
func (NopMetrics) RecordCacheHit(string)          {}
func (NopMetrics) RecordCacheMiss(string)         {}
func (NopMetrics) RecordLatency(string, float64)  {}
func (NopMetrics) RecordPreloadProgress(int, int) {}

var _ Metrics = NopMetrics{}
