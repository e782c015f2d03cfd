// Package metrics derives display-ready portfolio aggregates from fetched snapshots.
// Every function is pure and leaves its input untouched.
package metrics

import (
	"math"

	"FinDash/internal/domain/models"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// DeviationThreshold is the allocation drift, in percentage points, tolerated before a
// category is flagged over or under target.
const DeviationThreshold = 5.0

// Weights returns each holding's share of total market value in percent.
// A zero total yields zero weights.
func Weights(holdings []models.Holding) []models.HoldingWeight {
	total := 0.0
	for _, h := range holdings {
		total += h.MarketValue
	}
	out := make([]models.HoldingWeight, 0, len(holdings))
	for _, h := range holdings {
		w := 0.0
		if total != 0 {
			w = h.MarketValue * 100 / total
		}
		out = append(out, models.HoldingWeight{
			Symbol:      h.Symbol,
			MarketValue: h.MarketValue,
			Weight:      w,
		})
	}
	return out
}

// AllocationDeviations compares current category percentages with targets.
// Categories without a target are compared against 0.
func AllocationDeviations(current []models.AssetAllocationItem, targets map[string]float64) []models.AllocationDeviation {
	out := make([]models.AllocationDeviation, 0, len(current))
	for _, item := range current {
		target := targets[item.Category]
		dev := round1(item.Percentage - target)
		out = append(out, models.AllocationDeviation{
			Category:  item.Category,
			Current:   item.Percentage,
			Target:    target,
			Deviation: dev,
			Status:    classify(dev),
		})
	}
	return out
}

func classify(dev float64) string {
	switch {
	case dev > DeviationThreshold:
		return models.AllocationOver
	case dev < -DeviationThreshold:
		return models.AllocationUnder
	default:
		return models.AllocationBalanced
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// MaxDrawdown is the largest decline from a running peak, in percent, over a
// chronological series.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// SimpleReturns computes r_t = (v_t - v_{t-1}) / v_{t-1}.
// It returns a slice of length len(values)-1, or nil if insufficient data.
// Non-positive previous values yield a 0 return.
func SimpleReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (values[i]-prev)/prev)
	}
	return out
}

// Volatility is the population standard deviation of simple returns,
// annualized with 252 trading days and expressed in percent.
func Volatility(values []float64) float64 {
	returns := SimpleReturns(values)
	if len(returns) == 0 {
		return 0
	}
	n := float64(len(returns))
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= n
	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear) * 100
}

// AnnualizedReturn computes (end/start)^(365/days) - 1 in percent, where days is
// the number of samples. This is exact only for strictly daily series.
func AnnualizedReturn(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	start, end := values[0], values[len(values)-1]
	if start <= 0 || end < 0 {
		return 0
	}
	days := float64(len(values))
	return (math.Pow(end/start, 365/days) - 1) * 100
}

// TotalReturn is the change from first to last value in percent.
func TotalReturn(values []float64) float64 {
	if len(values) < 2 || values[0] <= 0 {
		return 0
	}
	return (values[len(values)-1] - values[0]) / values[0] * 100
}

// Summarize totals a holding set.
func Summarize(holdings []models.Holding) models.PortfolioSummary {
	var s models.PortfolioSummary
	for _, h := range holdings {
		s.TotalValue += h.MarketValue
		s.TotalCost += h.CostBasis
	}
	s.UnrealizedPnL = s.TotalValue - s.TotalCost
	if s.TotalCost != 0 {
		s.PnLPercent = s.UnrealizedPnL / s.TotalCost * 100
	}
	s.Positions = len(holdings)
	return s
}

// Closes extracts close prices in order.
func Closes(points []models.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Close
	}
	return out
}

// Performance bundles the risk and return figures of a value series.
func Performance(symbol string, values []float64) models.Performance {
	return models.Performance{
		Symbol:           symbol,
		Samples:          len(values),
		TotalReturn:      TotalReturn(values),
		AnnualizedReturn: AnnualizedReturn(values),
		Volatility:       Volatility(values),
		MaxDrawdown:      MaxDrawdown(values),
	}
}
