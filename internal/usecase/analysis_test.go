package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
	svccache "EquityPulse/internal/service/cache"
	"EquityPulse/internal/services/insider"
	"EquityPulse/internal/services/montecarlo"
	"EquityPulse/internal/services/scoring"
	"EquityPulse/internal/services/sentiment"
	"EquityPulse/pkg/logger"
)

type stubSnapshots struct {
	snap  *models.StockDataSnapshot
	err   error
	calls int
}

func (s *stubSnapshots) Snapshot(_ context.Context, _ string) (*models.StockDataSnapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

var _ domsvc.SnapshotSource = (*stubSnapshots)(nil)

// stubMetrics must be safe for concurrent use: report sections record
// from their own goroutines.
type stubMetrics struct {
	mu            sync.Mutex
	vetoes        []string
	tiers         []string
	ratings       []string
	cacheOutcomes []string
	errs          []string
}

func (m *stubMetrics) RecordMessageSent(_, _ string)       {}
func (m *stubMetrics) RecordLastPrice(_ string, _ float64) {}
func (m *stubMetrics) RecordLatency(_ string, _ float64)   {}

func (m *stubMetrics) RecordEvaluation(rating string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, rating)
}

func (m *stubMetrics) RecordSentimentCache(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheOutcomes = append(m.cacheOutcomes, outcome)
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

func (m *stubMetrics) RecordSentimentTier(tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers = append(m.tiers, tier)
}

func (m *stubMetrics) RecordVeto(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vetoes = append(m.vetoes, name)
}

var _ domrepo.Metrics = (*stubMetrics)(nil)

func (m *stubMetrics) Vetoes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vetoes
}

func (m *stubMetrics) Tiers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tiers
}

func (m *stubMetrics) Ratings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ratings
}

func (m *stubMetrics) CacheOutcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cacheOutcomes
}

func (m *stubMetrics) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs
}

func fixtureFundamentals() *models.Fundamentals {
	return &models.Fundamentals{
		PEGRatio:               models.Float(1.2),
		FCFYield:               models.Float(0.06),
		ROE:                    models.Float(0.22),
		NetMargin:              models.Float(0.18),
		DebtToEBITDA:           models.Float(1.0),
		RevenueGrowth:          models.Float(0.18),
		InterestCoverage:       models.Float(12),
		InstitutionalOwnership: models.Float(0.7),
	}
}

func fixtureTechnicals() *models.Technicals {
	return &models.Technicals{
		Price:          models.Float(110),
		SMA50:          models.Float(100),
		SMA200:         models.Float(90),
		RSI:            models.Float(55),
		RelativeVolume: models.Float(1.1),
		Beta:           models.Float(1.1),
	}
}

// fixtureCloses builds a deterministic drifting series with enough
// wiggle for a non-degenerate volatility fit.
func fixtureCloses(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1 + 0.0004 + 0.012*math.Sin(float64(i))
		closes[i] = price
	}
	return closes
}

func fixtureSnapshot() *models.StockDataSnapshot {
	now := time.Now().UTC()
	buy := func(exec string, daysAgo int) models.InsiderTrade {
		return models.InsiderTrade{
			ExecutiveID:     exec,
			TradeDate:       now.AddDate(0, 0, -daysAgo),
			Direction:       models.DirectionBuy,
			IsDiscretionary: true,
			ShareCount:      1000,
		}
	}
	return &models.StockDataSnapshot{
		Symbol:       "ACME",
		Sector:       "Technology",
		Fundamentals: *fixtureFundamentals(),
		Technicals:   *fixtureTechnicals(),
		Headlines: []models.Headline{
			{Title: "ACME beats earnings expectations and raises guidance", PublishedAt: now},
			{Title: "Analysts upgrade ACME on strong cloud growth", PublishedAt: now},
		},
		InsiderTrades: []models.InsiderTrade{buy("ceo", 10), buy("cfo", 4)},
		Closes:        fixtureCloses(120),
		AsOf:          now,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// newTestAnalysis wires real engines behind the use case; only the
// snapshot source and metrics sink are stubbed.
func newTestAnalysis(t *testing.T, src domsvc.SnapshotSource, m *stubMetrics) *AnalysisUseCase {
	t.Helper()
	cascade := sentiment.NewCascade(svccache.NewTTLCache(), testLogger(t),
		[]domsvc.SentimentProvider{sentiment.NewLexiconProvider()})
	return NewAnalysisUseCase(src, scoring.NewResolver(), scoring.NewEvaluator(),
		insider.NewDetector(), cascade, montecarlo.NewSimulator(), m)
}

func TestScoreInlineSkipsSnapshotFetch(t *testing.T) {
	src := &stubSnapshots{err: errors.New("source must not be called")}
	uc := newTestAnalysis(t, src, &stubMetrics{})

	res, err := uc.Score(context.Background(), ScoreParams{
		Symbol:       "ACME",
		Sector:       "Technology",
		Fundamentals: fixtureFundamentals(),
		Technicals:   fixtureTechnicals(),
	})

	require.NoError(t, err)
	assert.Zero(t, src.calls)
	assert.Equal(t, "ACME", res.Symbol)
	assert.Equal(t, "technology", res.Benchmark)
	assert.False(t, res.BenchmarkFallback)
	assert.Empty(t, res.AppliedVetos)
	assert.NotEmpty(t, res.Rating)
}

func TestScoreFillsMissingInputsFromSnapshot(t *testing.T) {
	src := &stubSnapshots{snap: fixtureSnapshot()}
	uc := newTestAnalysis(t, src, &stubMetrics{})

	res, err := uc.Score(context.Background(), ScoreParams{Symbol: "ACME"})

	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "technology", res.Benchmark)
	assert.NotEmpty(t, res.Breakdown)
}

func TestScoreSnapshotErrorPropagates(t *testing.T) {
	src := &stubSnapshots{err: errors.New("upstream down")}
	uc := newTestAnalysis(t, src, &stubMetrics{})

	_, err := uc.Score(context.Background(), ScoreParams{Symbol: "ACME"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestScoreRecordsVetoes(t *testing.T) {
	m := &stubMetrics{}
	uc := newTestAnalysis(t, &stubSnapshots{}, m)

	f := fixtureFundamentals()
	f.InterestCoverage = models.Float(0.8)
	res, err := uc.Score(context.Background(), ScoreParams{
		Symbol:       "ACME",
		Sector:       "Technology",
		Fundamentals: f,
		Technicals:   fixtureTechnicals(),
	})

	require.NoError(t, err)
	assert.Contains(t, res.AppliedVetos, "insolvency")
	assert.Equal(t, res.AppliedVetos, m.Vetoes())
	assert.Equal(t, []string{string(res.Rating)}, m.Ratings())
}

func TestInsiderWindowOverride(t *testing.T) {
	now := time.Now().UTC()
	sell := func(exec string, daysAgo int) models.InsiderTrade {
		return models.InsiderTrade{
			ExecutiveID:     exec,
			TradeDate:       now.AddDate(0, 0, -daysAgo),
			Direction:       models.DirectionSell,
			IsDiscretionary: true,
			ShareCount:      1000,
		}
	}
	snap := fixtureSnapshot()
	snap.InsiderTrades = []models.InsiderTrade{sell("ceo", 25), sell("cfo", 15), sell("coo", 5)}
	uc := newTestAnalysis(t, &stubSnapshots{snap: snap}, &stubMetrics{})

	// Sales 10 days apart never put three sellers inside the default
	// 14-day window.
	narrow, err := uc.Insider(context.Background(), InsiderParams{Symbol: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, models.InsiderNetSelling, narrow.Kind)

	wide, err := uc.Insider(context.Background(), InsiderParams{Symbol: "ACME", WindowDays: 30})
	require.NoError(t, err)
	assert.Equal(t, models.InsiderClusterSelling, wide.Kind)
}

func TestSentimentRecordsWinningTier(t *testing.T) {
	m := &stubMetrics{}
	uc := newTestAnalysis(t, &stubSnapshots{snap: fixtureSnapshot()}, m)

	res, err := uc.Sentiment(context.Background(), "ACME")

	require.NoError(t, err)
	assert.Equal(t, models.TierLexicon, res.SourceTier)
	assert.Equal(t, models.SentimentPositive, res.Label)
	assert.Equal(t, []string{models.TierLexicon}, m.Tiers())
}

func TestSentimentCountsCacheOutcomes(t *testing.T) {
	m := &stubMetrics{}
	uc := newTestAnalysis(t, &stubSnapshots{snap: fixtureSnapshot()}, m)

	_, err := uc.Sentiment(context.Background(), "ACME")
	require.NoError(t, err)
	_, err = uc.Sentiment(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, []string{"miss", "hit"}, m.CacheOutcomes())
}

func TestProjectionSeedReproducible(t *testing.T) {
	uc := newTestAnalysis(t, &stubSnapshots{snap: fixtureSnapshot()}, &stubMetrics{})
	seed := int64(42)
	params := ProjectionParams{Symbol: "ACME", Horizon: 30, Paths: 500, Seed: &seed}

	a, err := uc.Projection(context.Background(), params)
	require.NoError(t, err)
	b, err := uc.Projection(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "ACME", a.Symbol)
	assert.Equal(t, 30, a.HorizonDays)
	assert.Equal(t, 500, a.Paths)
}

func TestProjectionHistoryTrimsCloses(t *testing.T) {
	uc := newTestAnalysis(t, &stubSnapshots{snap: fixtureSnapshot()}, &stubMetrics{})

	// Trimming 120 closes down to 30 drops below the estimation floor,
	// which proves the override reached the simulator.
	_, err := uc.Projection(context.Background(), ProjectionParams{Symbol: "ACME", History: 30})

	var insufficient *montecarlo.InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 30, insufficient.Observations)
	assert.Equal(t, montecarlo.MinObservations, insufficient.Required)
}

func TestProjectionInsufficientHistoryCountsError(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Closes = snap.Closes[:10]
	m := &stubMetrics{}
	uc := newTestAnalysis(t, &stubSnapshots{snap: snap}, m)

	_, err := uc.Projection(context.Background(), ProjectionParams{Symbol: "ACME"})

	var insufficient *montecarlo.InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, []string{"projection"}, m.Errors())
}
