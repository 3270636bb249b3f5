package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	xutil "EquityPulse/pkg/util"
)

type stubPriceStore struct {
	bars   []models.Bar
	err    error
	symbol string
	from   time.Time
	to     time.Time
	limit  int
}

func (s *stubPriceStore) GetBars(_ context.Context, symbol string, from, to time.Time, limit int) ([]models.Bar, error) {
	s.symbol, s.from, s.to, s.limit = symbol, from, to, limit
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func (s *stubPriceStore) GetLatestBars(_ context.Context, _ string, _ int) ([]models.Bar, error) {
	return s.bars, nil
}

func (s *stubPriceStore) GetCloses(_ context.Context, _ string, _ int) ([]float64, error) {
	closes := make([]float64, 0, len(s.bars))
	for _, b := range s.bars {
		closes = append(closes, b.Close)
	}
	return closes, nil
}

func (s *stubPriceStore) StoreBars(_ context.Context, _ []models.Bar) error { return nil }

var _ domrepo.PriceStore = (*stubPriceStore)(nil)

func TestGetBarsDefaults(t *testing.T) {
	store := &stubPriceStore{bars: []models.Bar{{Symbol: "ACME", Close: 101}}}
	uc := NewBarsUseCase(store)

	res, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "ACME"})

	require.NoError(t, err)
	assert.Equal(t, "ACME", store.symbol)
	assert.Equal(t, 500, store.limit)
	// Defaults cover the trailing two years, day-aligned.
	assert.WithinDuration(t, time.Now().UTC(), store.to, 24*time.Hour)
	assert.Equal(t, xutil.Day(store.from), store.from)
	assert.Equal(t, xutil.Day(store.to).Add(24*time.Hour-time.Nanosecond), store.to)
	assert.Equal(t, 1, res.Count)
	assert.Len(t, res.Bars, 1)
}

func TestGetBarsSymbolRequired(t *testing.T) {
	uc := NewBarsUseCase(&stubPriceStore{})

	_, err := uc.GetBars(context.Background(), GetBarsParams{})

	require.Error(t, err)
}

func TestGetBarsRejectsInvertedRange(t *testing.T) {
	uc := NewBarsUseCase(&stubPriceStore{})
	now := time.Now().UTC()

	_, err := uc.GetBars(context.Background(), GetBarsParams{
		Symbol: "ACME",
		From:   now,
		To:     now.AddDate(0, 0, -1),
	})

	require.Error(t, err)
}

func TestGetBarsLimitCapped(t *testing.T) {
	store := &stubPriceStore{}
	uc := NewBarsUseCase(store)

	_, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "ACME", Limit: 50000})

	require.NoError(t, err)
	assert.Equal(t, 10000, store.limit)
}

func TestGetBarsStoreErrorWrapped(t *testing.T) {
	uc := NewBarsUseCase(&stubPriceStore{err: errors.New("query timeout")})

	_, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "ACME"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query timeout")
}
