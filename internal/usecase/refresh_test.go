package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
	pkgcache "EquityPulse/pkg/cache"
)

type fakeBarSource struct {
	bars    map[string][]models.Bar
	errs    map[string]error
	fetched []string
}

func (f *fakeBarSource) DailyBars(_ context.Context, symbol string, _ int) ([]models.Bar, error) {
	f.fetched = append(f.fetched, symbol)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

type recordingStore struct {
	stubPriceStore
	stored []string
}

func (s *recordingStore) StoreBars(_ context.Context, bars []models.Bar) error {
	if len(bars) > 0 {
		s.stored = append(s.stored, bars[0].Symbol)
	}
	return nil
}

type recordingQueue struct {
	types    []string
	payloads []interface{}
	err      error
}

func (q *recordingQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func newRefreshFixture(t *testing.T, src *fakeBarSource, q *recordingQueue, locks pkgcache.Service) (*RefreshUseCase, *recordingStore) {
	t.Helper()
	store := &recordingStore{}
	uc := NewRefreshUseCase(src, store, q, locks, testLogger(t), []string{"AAPL", "MSFT"}, "SPY", 30)
	return uc, store
}

func TestRefreshAllStoresAndEnqueues(t *testing.T) {
	src := &fakeBarSource{bars: map[string][]models.Bar{
		"AAPL": {{Symbol: "AAPL", Close: 190}},
		"MSFT": {{Symbol: "MSFT", Close: 410}},
		"SPY":  {{Symbol: "SPY", Close: 520}},
	}}
	q := &recordingQueue{}
	uc, store := newRefreshFixture(t, src, q, nil)

	uc.RefreshAll(context.Background())

	// The benchmark's history is refreshed but no report is queued for it.
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "SPY"}, store.stored)
	require.Len(t, q.types, 2)
	assert.Equal(t, []string{MsgTypeAnalysisRefresh, MsgTypeAnalysisRefresh}, q.types)

	p, ok := q.payloads[0].(RefreshPayload)
	require.True(t, ok)
	assert.Equal(t, "AAPL", p.Symbol)
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	src := &fakeBarSource{
		bars: map[string][]models.Bar{"MSFT": {{Symbol: "MSFT", Close: 410}}},
		errs: map[string]error{"AAPL": errors.New("vendor 502")},
	}
	q := &recordingQueue{}
	uc, store := newRefreshFixture(t, src, q, nil)

	uc.RefreshAll(context.Background())

	assert.Contains(t, store.stored, "MSFT")
	assert.NotContains(t, store.stored, "AAPL")
	// Regeneration is still queued for every watched symbol; workers
	// will use whatever history is on hand.
	assert.Len(t, q.types, 2)
}

func TestRefreshAllSkipsWhenLockHeld(t *testing.T) {
	locks := pkgcache.NewMemoryCache()
	defer locks.Close()

	ok, err := locks.TryLock(context.Background(), refreshLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	src := &fakeBarSource{}
	q := &recordingQueue{}
	uc, store := newRefreshFixture(t, src, q, locks)

	uc.RefreshAll(context.Background())

	assert.Empty(t, src.fetched)
	assert.Empty(t, store.stored)
	assert.Empty(t, q.types)
}

func TestRefreshAllReleasesLock(t *testing.T) {
	locks := pkgcache.NewMemoryCache()
	defer locks.Close()

	src := &fakeBarSource{bars: map[string][]models.Bar{}}
	uc, _ := newRefreshFixture(t, src, &recordingQueue{}, locks)

	uc.RefreshAll(context.Background())
	assert.NotEmpty(t, src.fetched)

	ok, err := locks.TryLock(context.Background(), refreshLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock should be free after the sweep finishes")
}

func TestRefreshSymbolEmptyHistory(t *testing.T) {
	src := &fakeBarSource{bars: map[string][]models.Bar{}}
	uc, store := newRefreshFixture(t, src, &recordingQueue{}, nil)

	require.NoError(t, uc.RefreshSymbol(context.Background(), "AAPL"))
	assert.Empty(t, store.stored, "nothing to store for an empty download")
}
