package models

// Requests for the analysis HTTP endpoints. Defined in domain for consistency and reuse.

type ScoreRequest struct {
	Symbol       string        `query:"symbol" json:"symbol" validate:"required"`
	Sector       string        `query:"sector" json:"sector"`
	Fundamentals *Fundamentals `json:"fundamentals"`
	Technicals   *Technicals   `json:"technicals"`
}

type InsiderRequest struct {
	Symbol       string `query:"symbol" json:"symbol" validate:"required"`
	WindowDays   int    `query:"window_days" json:"window_days" default:"14" validate:"gte=1,lte=90"`
	LookbackDays int    `query:"lookback_days" json:"lookback_days" default:"90" validate:"gte=1,lte=365"`
}

type SentimentRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type ProjectionRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" default:"252" validate:"gte=1,lte=1260"`
	Paths   int    `query:"paths" json:"paths" default:"10000" validate:"gte=100,lte=200000"`
	Seed    *int64 `query:"seed" json:"seed"`
	History int    `query:"history" json:"history" default:"504" validate:"gte=60,lte=5040"`
}

type ReportRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
	Horizon int    `query:"horizon" json:"horizon" default:"252" validate:"gte=1,lte=1260"`
	Paths   int    `query:"paths" json:"paths" default:"10000" validate:"gte=100,lte=200000"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
}
