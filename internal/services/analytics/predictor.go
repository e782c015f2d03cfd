package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinDash/internal/domain/models"
	domsvc "FinDash/internal/domain/service"
)

// HTTPPricePredictor proxies predictions to the external model service.
type HTTPPricePredictor struct {
	base *HTTPServiceBase
	now  func() time.Time
}

func NewHTTPPricePredictor(base *HTTPServiceBase) *HTTPPricePredictor {
	return &HTTPPricePredictor{base: base, now: time.Now}
}

type predictRequest struct {
	Symbol  string `json:"symbol"`
	Horizon string `json:"horizon"`
}

type predictResponse struct {
	PredictedPrice float64    `json:"predicted_price"`
	Confidence     float64    `json:"confidence"`
	Model          string     `json:"model"`
	GeneratedAt    *time.Time `json:"generated_at"`
}

func (p *HTTPPricePredictor) Predict(ctx context.Context, symbol, horizon string) (models.Prediction, error) {
	var result models.Prediction
	symbol = strings.ToUpper(symbol)
	var pr predictResponse
	if err := p.base.PostJSON(ctx, "/predict", predictRequest{Symbol: symbol, Horizon: horizon}, &pr); err != nil {
		return result, fmt.Errorf("predict %s/%s: %w", symbol, horizon, err)
	}
	result.Symbol = symbol
	result.Horizon = horizon
	result.PredictedPrice = pr.PredictedPrice
	result.Confidence = pr.Confidence
	result.Model = pr.Model
	result.GeneratedAt = p.now()
	if pr.GeneratedAt != nil {
		result.GeneratedAt = *pr.GeneratedAt
	}
	return result, nil
}

var _ domsvc.PricePredictor = (*HTTPPricePredictor)(nil)
