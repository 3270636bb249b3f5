package service

import (
	"context"
	"errors"

	"EquityPulse/internal/domain/models"
)

// ErrNoData means every upstream section of a snapshot came back empty.
var ErrNoData = errors.New("no data available")

// SentimentProvider is one tier of the sentiment cascade. Implementations
// own their transport and error handling; the cascade only sees success
// or failure.
type SentimentProvider interface {
	// Tier names the cascade slot and keys the per-tier cache.
	Tier() string
	Analyze(ctx context.Context, symbol string, headlines []models.Headline) (*models.SentimentResult, error)
}

// SnapshotSource assembles the full per-symbol input set the analysis
// operations consume: fundamentals, technicals, trailing closes, recent
// headlines, and insider filings.
type SnapshotSource interface {
	Snapshot(ctx context.Context, symbol string) (*models.StockDataSnapshot, error)
}

// BarSource downloads daily bar history from the upstream vendor.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)
}
