// Package finapi is the HTTP client for the portfolio, market and forum APIs.
package finapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"FinDash/internal/domain/models"
	drepo "FinDash/internal/domain/repository"
	xhttp "FinDash/pkg/http"
	applogger "FinDash/pkg/logger"
)

// maxQuoteFanout bounds concurrent quote requests in Quotes.
const maxQuoteFanout = 8

// Endpoints holds the upstream base URLs.
type Endpoints struct {
	PortfolioURL string
	MarketURL    string
	ForumURL     string
}

// Client implements PortfolioSource, MarketSource and ForumSource over HTTP.
type Client struct {
	endpoints Endpoints
	http      *xhttp.Client
	quotes    singleflight.Group
	log       *applogger.Logger
}

var (
	_ drepo.PortfolioSource = (*Client)(nil)
	_ drepo.MarketSource    = (*Client)(nil)
	_ drepo.ForumSource     = (*Client)(nil)
)

// New creates a client. Base URLs are used without trailing slashes.
func New(endpoints Endpoints, hc *xhttp.Client, log *applogger.Logger) *Client {
	if log == nil {
		log = applogger.Nop()
	}
	endpoints.PortfolioURL = strings.TrimRight(endpoints.PortfolioURL, "/")
	endpoints.MarketURL = strings.TrimRight(endpoints.MarketURL, "/")
	endpoints.ForumURL = strings.TrimRight(endpoints.ForumURL, "/")
	return &Client{
		endpoints: endpoints,
		http:      hc,
		log:       log.Component("finapi"),
	}
}

// Holdings fetches the current positions.
func (c *Client) Holdings(ctx context.Context) ([]models.Holding, error) {
	var out []models.Holding
	if err := c.http.GetJSON(ctx, c.endpoints.PortfolioURL+"/holdings", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch holdings: %w", err)
	}
	for i := range out {
		if out[i].MarketValue == 0 {
			out[i].MarketValue = out[i].Quantity * out[i].CurrentPrice
		}
	}
	return out, nil
}

// Allocation fetches the current category allocation.
func (c *Client) Allocation(ctx context.Context) ([]models.AssetAllocationItem, error) {
	var out []models.AssetAllocationItem
	if err := c.http.GetJSON(ctx, c.endpoints.PortfolioURL+"/allocation", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch allocation: %w", err)
	}
	return out, nil
}

// Targets fetches target percentages keyed by category.
func (c *Client) Targets(ctx context.Context) (map[string]float64, error) {
	out := map[string]float64{}
	if err := c.http.GetJSON(ctx, c.endpoints.PortfolioURL+"/allocation/targets", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch allocation targets: %w", err)
	}
	return out, nil
}

// History fetches closes for symbol in [from, to], oldest first.
func (c *Client) History(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))

	var out []models.PricePoint
	if err := c.http.GetJSON(ctx, c.endpoints.MarketURL+"/history", q, &out); err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	return out, nil
}

// Quote fetches the latest quote. Concurrent calls for the same symbol share one request.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(symbol)
	v, err, shared := c.quotes.Do(symbol, func() (interface{}, error) {
		q := url.Values{}
		q.Set("symbol", symbol)
		var out models.Quote
		if err := c.http.GetJSON(ctx, c.endpoints.MarketURL+"/quote", q, &out); err != nil {
			return models.Quote{}, err
		}
		if out.Symbol == "" {
			out.Symbol = symbol
		}
		return out, nil
	})
	if err != nil {
		return models.Quote{}, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}
	if shared {
		c.log.Debug("quote request coalesced", applogger.String("symbol", symbol))
	}
	return v.(models.Quote), nil
}

// Quotes fetches quotes for symbols concurrently and returns them in input order.
// Any failure fails the whole batch.
func (c *Client) Quotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	out := make([]models.Quote, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxQuoteFanout)
	for i, s := range symbols {
		g.Go(func() error {
			q, err := c.Quote(gctx, s)
			if err != nil {
				return err
			}
			out[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForumPosts fetches all community posts.
func (c *Client) ForumPosts(ctx context.Context) ([]models.ForumPost, error) {
	var out []models.ForumPost
	if err := c.http.GetJSON(ctx, c.endpoints.ForumURL+"/posts", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch forum posts: %w", err)
	}
	return out, nil
}
