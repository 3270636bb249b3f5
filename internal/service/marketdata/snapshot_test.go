package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
	drepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
	"EquityPulse/pkg/config"
	"EquityPulse/pkg/logger"
)

// fakeVendor serves the four REST surfaces with canned payloads.
// Paths listed in down return 500; barCalls counts history fetches per
// symbol.
type fakeVendor struct {
	mu       sync.Mutex
	down     map[string]bool
	barCalls map[string]int
	barDays  int
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{down: map[string]bool{}, barCalls: map[string]int{}, barDays: 250}
}

func (v *fakeVendor) fail(paths ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range paths {
		v.down[p] = true
	}
}

func (v *fakeVendor) barCallCount(symbol string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.barCalls[symbol]
}

func (v *fakeVendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	down := v.down[r.URL.Path]
	v.mu.Unlock()
	if down {
		http.Error(w, `{"error":"unavailable"}`, http.StatusInternalServerError)
		return
	}
	symbol := r.URL.Query().Get("symbol")
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/fundamentals":
		fmt.Fprintf(w, `{"symbol":%q,"sector":"Technology","peg_ratio":1.2,"roe":0.22,"interest_coverage":12}`, symbol)
	case "/v1/news":
		fmt.Fprintf(w, `{"symbol":%q,"headlines":[
			{"title":"%s beats earnings expectations","published_at":"2025-06-02T13:30:00Z"},
			{"title":"Analysts upgrade %s","published_at":"2025-06-02T15:00:00Z"}]}`,
			symbol, symbol, symbol)
	case "/v1/insider-trades":
		fmt.Fprintf(w, `{"symbol":%q,"trades":[
			{"executive_id":"ceo","trade_date":"2025-05-20","direction":"buy","discretionary":true,"shares":1000},
			{"executive_id":"cfo","trade_date":"not-a-date","direction":"sell","discretionary":true,"shares":500}]}`,
			symbol)
	case "/v1/daily-bars":
		v.mu.Lock()
		v.barCalls[symbol]++
		days := v.barDays
		v.mu.Unlock()
		fmt.Fprintf(w, `{"symbol":%q,"bars":[`, symbol)
		day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
		price := 100.0
		for i := 0; i < days; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			price *= 1 + 0.0004 + 0.012*math.Sin(float64(i))
			fmt.Fprintf(w, `{"day":%q,"open":%.4f,"high":%.4f,"low":%.4f,"close":%.4f,"volume":1000}`,
				day.AddDate(0, 0, i).Format("2006-01-02"), price, price, price, price)
		}
		fmt.Fprint(w, `]}`)
	default:
		http.NotFound(w, r)
	}
}

type stubBars struct {
	bars []models.Bar
	err  error
}

func (s *stubBars) GetBars(context.Context, string, time.Time, time.Time, int) ([]models.Bar, error) {
	return s.bars, s.err
}

func (s *stubBars) GetLatestBars(context.Context, string, int) ([]models.Bar, error) {
	return s.bars, s.err
}

func (s *stubBars) GetCloses(context.Context, string, int) ([]float64, error) {
	return nil, s.err
}

func (s *stubBars) StoreBars(context.Context, []models.Bar) error { return nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestAssembler(t *testing.T, vendor *fakeVendor, store drepo.PriceStore, benchmark string) *SnapshotAssembler {
	t.Helper()
	srv := httptest.NewServer(vendor)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.MarketData.BaseURL = srv.URL
	cfg.MarketData.APIKey = "test-key"
	cfg.MarketData.BenchmarkSymbol = benchmark
	log := testLogger(t)
	return NewSnapshotAssembler(NewRESTClient(cfg, log), store, cfg, log)
}

func TestSnapshotAssemblesAllSections(t *testing.T) {
	vendor := newFakeVendor()
	a := newTestAssembler(t, vendor, nil, "")

	snap, err := a.Snapshot(context.Background(), "ACME")

	require.NoError(t, err)
	assert.Equal(t, "ACME", snap.Symbol)
	assert.Equal(t, "Technology", snap.Sector)
	require.NotNil(t, snap.Fundamentals.PEGRatio)
	assert.InDelta(t, 1.2, *snap.Fundamentals.PEGRatio, 1e-9)
	assert.Len(t, snap.Headlines, 2)

	// The unparseable filing date is dropped, not fatal.
	require.Len(t, snap.InsiderTrades, 1)
	assert.Equal(t, models.DirectionBuy, snap.InsiderTrades[0].Direction)

	assert.Len(t, snap.Closes, 250)
	require.NotNil(t, snap.Technicals.Price)
	assert.NotNil(t, snap.Technicals.SMA50)
	assert.NotNil(t, snap.Technicals.SMA200)
	assert.Contains(t, snap.Technicals.DerivedMetrics, "sma50")
	assert.Contains(t, snap.Technicals.DerivedMetrics, "rsi")
}

func TestSnapshotSectionsDegradeIndependently(t *testing.T) {
	vendor := newFakeVendor()
	vendor.fail("/v1/fundamentals", "/v1/insider-trades")
	a := newTestAssembler(t, vendor, nil, "")

	snap, err := a.Snapshot(context.Background(), "ACME")

	require.NoError(t, err)
	assert.Nil(t, snap.Fundamentals.PEGRatio)
	assert.Empty(t, snap.InsiderTrades)
	assert.Len(t, snap.Headlines, 2)
	assert.NotEmpty(t, snap.Closes)
}

func TestSnapshotFailsOnlyWhenEverySectionDoes(t *testing.T) {
	vendor := newFakeVendor()
	vendor.fail("/v1/fundamentals", "/v1/news", "/v1/insider-trades", "/v1/daily-bars")
	a := newTestAssembler(t, vendor, nil, "")

	_, err := a.Snapshot(context.Background(), "ACME")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domsvc.ErrNoData))
}

func TestSnapshotPrefersStoredBars(t *testing.T) {
	vendor := newFakeVendor()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	stored := make([]models.Bar, 80)
	for i := range stored {
		stored[i] = models.Bar{
			Day:    day.AddDate(0, 0, i),
			Symbol: "ACME",
			Close:  100 + float64(i),
			Volume: 1000,
		}
	}
	a := newTestAssembler(t, vendor, &stubBars{bars: stored}, "")

	snap, err := a.Snapshot(context.Background(), "ACME")

	require.NoError(t, err)
	assert.Zero(t, vendor.barCallCount("ACME"))
	assert.Len(t, snap.Closes, 80)
	assert.NotNil(t, snap.Technicals.SMA50)
	assert.Nil(t, snap.Technicals.SMA200)
}

func TestSnapshotVendorBackfillWhenStoreEmpty(t *testing.T) {
	vendor := newFakeVendor()
	a := newTestAssembler(t, vendor, &stubBars{err: errors.New("clickhouse down")}, "")

	snap, err := a.Snapshot(context.Background(), "ACME")

	require.NoError(t, err)
	assert.Equal(t, 1, vendor.barCallCount("ACME"))
	assert.Len(t, snap.Closes, 250)
}

func TestSnapshotAttachesBenchmarkBeta(t *testing.T) {
	vendor := newFakeVendor()
	a := newTestAssembler(t, vendor, nil, "SPY")

	snap, err := a.Snapshot(context.Background(), "ACME")

	require.NoError(t, err)
	require.NotNil(t, snap.Technicals.Beta)
	assert.Contains(t, snap.Technicals.DerivedMetrics, "beta")
	assert.Equal(t, 1, vendor.barCallCount("SPY"))
}
