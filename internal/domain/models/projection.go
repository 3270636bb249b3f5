package models

// HistogramBin is one fixed-width bucket of terminal simulated prices.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// ProjectionResult summarizes a Monte Carlo price simulation.
type ProjectionResult struct {
	Symbol       string  `json:"symbol,omitempty"`
	CurrentPrice float64 `json:"current_price"`
	HorizonDays  int     `json:"horizon_days"`
	Paths        int     `json:"paths"`
	P10          float64 `json:"p10"`
	P50          float64 `json:"p50"`
	P90          float64 `json:"p90"`
	// ProbabilityOfLoss is the fraction of paths ending below the
	// current price.
	ProbabilityOfLoss float64 `json:"probability_of_loss"`
	// ValueAtRisk95 is the loss fraction of current price at the 5th
	// percentile of terminal outcomes, floored at zero.
	ValueAtRisk95        float64        `json:"value_at_risk_95"`
	ExpectedReturn       float64        `json:"expected_return"`
	AnnualizedVolatility float64        `json:"annualized_volatility"`
	DailyMu              float64        `json:"daily_mu"`
	DailySigma           float64        `json:"daily_sigma"`
	Histogram            []HistogramBin `json:"histogram"`
}
