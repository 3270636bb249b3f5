package usecase

import (
	"context"
	"fmt"
	"time"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	xutil "EquityPulse/pkg/util"
)

// BarsUseCase provides business logic for retrieving daily bars.
type BarsUseCase struct {
	store domrepo.PriceStore
}

func NewBarsUseCase(store domrepo.PriceStore) *BarsUseCase {
	return &BarsUseCase{store: store}
}

type GetBarsParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetBarsResult struct {
	Symbol string
	From   time.Time
	To     time.Time
	Count  int
	Bars   []models.Bar
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.AddDate(-2, 0, 0)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	// Bars are daily, so ranges snap to whole UTC days. Identical
	// requests made at different times of day then share a range.
	p.From, p.To = xutil.AlignDayRange(p.From, p.To)
	if p.Limit <= 0 {
		p.Limit = 500
	}
	if p.Limit > 10000 {
		p.Limit = 10000
	}

	bars, err := uc.store.GetBars(ctx, p.Symbol, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}

	return &GetBarsResult{
		Symbol: p.Symbol,
		From:   p.From,
		To:     p.To,
		Count:  len(bars),
		Bars:   bars,
	}, nil
}
