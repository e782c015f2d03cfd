package models

// Holding is a position snapshot as returned by the portfolio API.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CurrentPrice float64 `json:"current_price"`
	CostBasis    float64 `json:"cost_basis"`
	MarketValue  float64 `json:"market_value"`
}

// AssetAllocationItem is one category of the current allocation.
type AssetAllocationItem struct {
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	Value      float64 `json:"value"`
}

// HoldingWeight is a holding's share of total market value, in percent.
type HoldingWeight struct {
	Symbol      string  `json:"symbol"`
	MarketValue float64 `json:"market_value"`
	Weight      float64 `json:"weight"`
}

// Allocation status values.
const (
	AllocationOver     = "over"
	AllocationUnder    = "under"
	AllocationBalanced = "balanced"
)

// AllocationDeviation compares a category's current share with its target.
type AllocationDeviation struct {
	Category  string  `json:"category"`
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
	Deviation float64 `json:"deviation"`
	Status    string  `json:"status"`
}

// PortfolioSummary aggregates a holding set.
type PortfolioSummary struct {
	TotalValue    float64 `json:"total_value"`
	TotalCost     float64 `json:"total_cost"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
	Positions     int     `json:"positions"`
}

// Performance bundles risk/return figures over a value series. Percentages throughout.
type Performance struct {
	Symbol           string  `json:"symbol,omitempty"`
	Samples          int     `json:"samples"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	MaxDrawdown      float64 `json:"max_drawdown"`
}
