package repository

import (
	"context"
	"time"

	"EquityPulse/internal/domain/models"
)

// PriceStore provides access to the daily bar history backing scoring
// and simulation.
type PriceStore interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Bar, error)
	GetLatestBars(ctx context.Context, symbol string, n int) ([]models.Bar, error)
	GetCloses(ctx context.Context, symbol string, n int) ([]float64, error)
	StoreBars(ctx context.Context, bars []models.Bar) error
}
