package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	svcmetrics "FinDash/internal/service/metrics"
	"FinDash/pkg/config"
	xhttp "FinDash/pkg/http"
	applogger "FinDash/pkg/logger"
)

// HTTPServiceBase posts JSON to the model service through a circuit breaker.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	metrics *svcmetrics.Upstream
	log     *applogger.Logger
}

// NewHTTPServiceBase builds the client and breaker from upstream and breaker config.
func NewHTTPServiceBase(cfg *config.Config, log *applogger.Logger) *HTTPServiceBase {
	if log == nil {
		log = applogger.Nop()
	}
	log = log.Component("analytics")
	timeout := cfg.Upstream.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.Upstream.PredictionURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		breaker: newBreaker("prediction", cfg.Breaker, log),
		log:     log,
	}
}

func newBreaker(name string, bc config.BreakerConfig, log *applogger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
		// caller mistakes say nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
}

// WithMetrics records per-endpoint latency and errors on m.
func (b *HTTPServiceBase) WithMetrics(m *svcmetrics.Upstream) *HTTPServiceBase {
	b.metrics = m
	return b
}

// PostJSON posts payload to path under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("analytics http client not initialized")
	}
	start := time.Now()
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.PostJSON(ctx, b.baseURL+path, payload, dest)
	})
	b.metrics.Observe(path, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// State exposes the breaker state for health reporting.
func (b *HTTPServiceBase) State() gobreaker.State {
	return b.breaker.State()
}

// Retryable reports whether a prediction error is worth another attempt: open
// breakers and upstream 4xx other than 429 are final.
func Retryable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return !isClientError(err)
}

func isClientError(err error) bool {
	var se *xhttp.StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && !se.Temporary()
}
