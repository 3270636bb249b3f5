package models

import "time"

// Fundamentals carries per-security fundamental metrics. Every field is
// optional; nil means the provider had no figure for it.
type Fundamentals struct {
	PEGRatio               *float64 `json:"peg_ratio,omitempty"`
	FCFYield               *float64 `json:"fcf_yield,omitempty"`
	ROE                    *float64 `json:"roe,omitempty"`
	NetMargin              *float64 `json:"net_margin,omitempty"`
	DebtToEBITDA           *float64 `json:"debt_to_ebitda,omitempty"`
	RevenueGrowth          *float64 `json:"revenue_growth,omitempty"`
	InterestCoverage       *float64 `json:"interest_coverage,omitempty"`
	InstitutionalOwnership *float64 `json:"institutional_ownership,omitempty"`
}

// Technicals carries per-security technical metrics; nil means unavailable.
type Technicals struct {
	Price          *float64 `json:"price,omitempty"`
	SMA50          *float64 `json:"sma50,omitempty"`
	SMA200         *float64 `json:"sma200,omitempty"`
	RSI            *float64 `json:"rsi,omitempty"`
	RelativeVolume *float64 `json:"relative_volume,omitempty"`
	Beta           *float64 `json:"beta,omitempty"`
	// DerivedMetrics names the fields above (by json key) that were
	// computed locally from bar history instead of supplied by the
	// vendor.
	DerivedMetrics []string `json:"derived_metrics,omitempty"`
}

// Headline is a single news item considered by the sentiment cascade.
type Headline struct {
	Title       string    `json:"title"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// StockDataSnapshot is the assembled per-ticker input for the engine entry
// points. The market data layer builds it; ownership stays with the caller.
type StockDataSnapshot struct {
	Symbol        string         `json:"symbol"`
	Sector        string         `json:"sector,omitempty"`
	Fundamentals  Fundamentals   `json:"fundamentals"`
	Technicals    Technicals     `json:"technicals"`
	Headlines     []Headline     `json:"headlines,omitempty"`
	InsiderTrades []InsiderTrade `json:"insider_trades,omitempty"`
	// Closes are trailing daily closes, oldest first.
	Closes []float64 `json:"closes,omitempty"`
	AsOf   time.Time `json:"as_of"`
}

// Float returns a pointer to v; shorthand for building optional metrics.
func Float(v float64) *float64 { return &v }
