package analytics

// Summary is the headline valuation block of a portfolio report.
type Summary struct {
	TotalValue       float64 `json:"total_value"`
	TotalInvested    float64 `json:"total_invested"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	DailyChangePct   float64 `json:"daily_change_pct"`
	MonthlyChangePct float64 `json:"monthly_change_pct"`
	YTDChangePct     float64 `json:"ytd_change_pct"`
	NbAccounts       int     `json:"nb_accounts"`
	NbHoldings       int     `json:"nb_holdings"`
}

// HoldingView is one portfolio line with its computed performance.
// The *Available flags distinguish "computed as zero" from "no reference
// price inside the window": both contribute 0 to the weighted aggregates,
// but only the former should be displayed as an actual figure.
type HoldingView struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Ticker           string  `json:"ticker"`
	AccountID        string  `json:"account_id"`
	AccountName      string  `json:"account_name"`
	AccountType      string  `json:"account_type"`
	InstrumentID     string  `json:"instrument_id"`
	AssetClass       string  `json:"asset_class,omitempty"`
	Quantity         float64 `json:"quantity"`
	Value            float64 `json:"value"`
	Invested         float64 `json:"invested"`
	AllocationPct    int     `json:"allocation_pct"`
	DailyChangePct   float64 `json:"daily_change_pct"`
	MonthlyChangePct float64 `json:"monthly_change_pct"`
	YTDChangePct     float64 `json:"ytd_change_pct"`
	DailyAvailable   bool    `json:"daily_available"`
	MonthlyAvailable bool    `json:"monthly_available"`
	YTDAvailable     bool    `json:"ytd_available"`
}

// Allocation is one category slice of the portfolio. Percentages are
// rounded independently, so a full set can sum to 99-101.
type Allocation struct {
	Category Category `json:"category"`
	Amount   float64  `json:"amount"`
	Percent  int      `json:"percent"`
}

// AccountTypeAllocation is the portfolio broken down by declared account
// type rather than by category.
type AccountTypeAllocation struct {
	Type    string `json:"type"`
	Percent int    `json:"percent"`
}

// RiskProfile is the advisory risk block derived from the daily
// portfolio-value series and the current allocation.
type RiskProfile struct {
	VolatilityPct        float64 `json:"volatility_pct"`
	VolatilityScore      int     `json:"volatility_score"`
	VolatilityLabel      string  `json:"volatility_label"`
	MaxDrawdownPct       float64 `json:"max_drawdown_pct"`
	DiversificationScore int     `json:"diversification_score"`
	DiversificationLabel string  `json:"diversification_label"`
	LiquidityScore       int     `json:"liquidity_score"`
	HorizonScore         int     `json:"horizon_score"`
	GlobalLabel          string  `json:"global_label"`

	// HistoryPoints is how many daily snapshots fed the volatility and
	// drawdown figures; 0 means those figures are "not available"
	// rather than truly zero.
	HistoryPoints int `json:"history_points"`
}

// TopHolding is one row of the largest-positions table.
type TopHolding struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Ticker          string  `json:"ticker"`
	WeightPct       int     `json:"weight_pct"`
	PerfPct         float64 `json:"perf_pct"`
	VolatilityLabel string  `json:"volatility_label"`
}

// Report is the full analytics payload backing the dashboards.
type Report struct {
	Summary             Summary                 `json:"summary"`
	Holdings            []HoldingView           `json:"holdings"`
	Allocations         []Allocation            `json:"allocations"`
	AccountTypes        []AccountTypeAllocation `json:"account_types"`
	Risk                RiskProfile             `json:"risk"`
	TopHoldings         []TopHolding            `json:"top_holdings"`
	BestHoldingID       string                  `json:"best_holding_id,omitempty"`
	WorstHoldingID      string                  `json:"worst_holding_id,omitempty"`
}
