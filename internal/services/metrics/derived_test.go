package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinDash/internal/domain/models"
)

func TestWeights(t *testing.T) {
	holdings := []models.Holding{
		{Symbol: "AAPL", MarketValue: 100},
		{Symbol: "MSFT", MarketValue: 300},
		{Symbol: "NVDA", MarketValue: 600},
	}
	got := Weights(holdings)
	require.Len(t, got, 3)
	assert.InDelta(t, 10.0, got[0].Weight, 1e-9)
	assert.InDelta(t, 30.0, got[1].Weight, 1e-9)
	assert.InDelta(t, 60.0, got[2].Weight, 1e-9)
	assert.Equal(t, "NVDA", got[2].Symbol)
}

func TestWeights_ZeroTotal(t *testing.T) {
	got := Weights([]models.Holding{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}})
	for _, w := range got {
		assert.Equal(t, 0.0, w.Weight)
		assert.False(t, math.IsNaN(w.Weight))
	}
	assert.Empty(t, Weights(nil))
}

func TestAllocationDeviations(t *testing.T) {
	current := []models.AssetAllocationItem{
		{Category: "equity", Percentage: 62},
		{Category: "bonds", Percentage: 50},
		{Category: "cash", Percentage: 3.04},
		{Category: "crypto", Percentage: 8},
	}
	targets := map[string]float64{"equity": 55, "bonds": 55, "cash": 10}

	got := AllocationDeviations(current, targets)
	require.Len(t, got, 4)

	assert.Equal(t, 7.0, got[0].Deviation)
	assert.Equal(t, models.AllocationOver, got[0].Status)

	assert.Equal(t, -5.0, got[1].Deviation)
	assert.Equal(t, models.AllocationBalanced, got[1].Status, "-5 is on the boundary")

	assert.Equal(t, -7.0, got[2].Deviation)
	assert.Equal(t, models.AllocationUnder, got[2].Status)

	assert.Equal(t, 0.0, got[3].Target, "missing target defaults to 0")
	assert.Equal(t, 8.0, got[3].Deviation)
	assert.Equal(t, models.AllocationOver, got[3].Status)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 25.0, MaxDrawdown([]float64{100, 120, 90, 110}), 1e-9)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestSimpleReturns(t *testing.T) {
	got := SimpleReturns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, -0.1, got[1], 1e-12)
	assert.Nil(t, SimpleReturns([]float64{1}))
	assert.Equal(t, []float64{0}, SimpleReturns([]float64{0, 5}))
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, Volatility([]float64{100}))
	assert.Equal(t, 0.0, Volatility([]float64{100, 101}), "a single return has no dispersion")

	// returns +10% and -10%: population stddev is 0.1
	want := 0.1 * math.Sqrt(252) * 100
	assert.InDelta(t, want, Volatility([]float64{100, 110, 99}), 1e-9)
}

func TestAnnualizedReturn(t *testing.T) {
	values := make([]float64, 365)
	for i := range values {
		values[i] = 100
	}
	values[364] = 110
	assert.InDelta(t, 10.0, AnnualizedReturn(values), 1e-9)

	assert.Equal(t, 0.0, AnnualizedReturn([]float64{100}))
	assert.Equal(t, 0.0, AnnualizedReturn([]float64{0, 100}))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]models.Holding{
		{Symbol: "A", MarketValue: 150, CostBasis: 100},
		{Symbol: "B", MarketValue: 50, CostBasis: 100},
	})
	assert.Equal(t, 200.0, s.TotalValue)
	assert.Equal(t, 200.0, s.TotalCost)
	assert.Equal(t, 0.0, s.UnrealizedPnL)
	assert.Equal(t, 2, s.Positions)

	empty := Summarize(nil)
	assert.Equal(t, 0.0, empty.PnLPercent)
}

func TestPerformance_DoesNotMutateInput(t *testing.T) {
	values := []float64{100, 120, 90, 110}
	snapshot := append([]float64(nil), values...)

	p := Performance("AAPL", values)
	assert.Equal(t, snapshot, values)
	assert.Equal(t, 4, p.Samples)
	assert.InDelta(t, 25.0, p.MaxDrawdown, 1e-9)
	assert.InDelta(t, 10.0, p.TotalReturn, 1e-9)
	assert.Equal(t, p, Performance("AAPL", values), "idempotent")
}

func TestCloses(t *testing.T) {
	got := Closes([]models.PricePoint{{Close: 1}, {Close: 2}})
	assert.Equal(t, []float64{1, 2}, got)
}
