package service

import (
	"context"

	"FinDash/internal/domain/models"
)

// PricePredictor forecasts a symbol's price for a horizon using the external model.
type PricePredictor interface {
	Predict(ctx context.Context, symbol string, horizon string) (models.Prediction, error)
}
