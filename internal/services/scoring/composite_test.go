package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
)

func marketBench() models.BenchmarkProfile {
	return models.BenchmarkProfile{
		Key:            MarketKey,
		PEGFair:        1.8,
		FCFYieldStrong: 0.05,
		ROEStrong:      0.15,
		MarginHealthy:  0.10,
		DebtSafe:       2.5,
		GrowthStrong:   0.08,
		BetaSafe:       1.2,
	}
}

func idealFundamentals(b models.BenchmarkProfile) *models.Fundamentals {
	return &models.Fundamentals{
		PEGRatio:         models.Float(b.PEGFair),
		FCFYield:         models.Float(b.FCFYieldStrong),
		ROE:              models.Float(b.ROEStrong),
		NetMargin:        models.Float(b.MarginHealthy),
		DebtToEBITDA:     models.Float(0),
		RevenueGrowth:    models.Float(b.GrowthStrong),
		InterestCoverage: models.Float(12),
	}
}

func idealTechnicals() *models.Technicals {
	return &models.Technicals{
		Price:          models.Float(108),
		SMA50:          models.Float(100),
		SMA200:         models.Float(95),
		RSI:            models.Float(55),
		RelativeVolume: models.Float(2.0),
		Beta:           models.Float(1.0),
	}
}

func findMetric(t *testing.T, res models.ScoreResult, name string) models.MetricScore {
	t.Helper()
	for _, m := range res.Breakdown {
		if m.Metric == name {
			return m
		}
	}
	t.Fatalf("metric %s not in breakdown", name)
	return models.MetricScore{}
}

func TestEvaluatePerfectInputs(t *testing.T) {
	res := NewEvaluator().Evaluate(idealFundamentals(marketBench()), idealTechnicals(), marketBench())

	assert.InDelta(t, 100, res.QualityScore, 1e-9)
	assert.InDelta(t, 100, res.TimingScore, 1e-9)
	assert.InDelta(t, 100, res.FinalScore, 1e-9)
	assert.Equal(t, models.RatingStrongBuy, res.Rating)
	assert.Empty(t, res.AppliedVetos)
	assert.Len(t, res.Breakdown, 10)
	for _, m := range res.Breakdown {
		assert.False(t, m.DataMissing, "metric %s", m.Metric)
	}
}

func TestEvaluateAllMissing(t *testing.T) {
	res := NewEvaluator().Evaluate(nil, nil, marketBench())

	assert.Zero(t, res.QualityScore)
	assert.Zero(t, res.TimingScore)
	assert.Zero(t, res.FinalScore)
	assert.Equal(t, models.RatingSell, res.Rating)
	assert.Empty(t, res.AppliedVetos)
	require.Len(t, res.Breakdown, 10)
	for _, m := range res.Breakdown {
		assert.True(t, m.DataMissing, "metric %s", m.Metric)
		assert.Zero(t, m.Points, "metric %s", m.Metric)
	}
}

func TestEvaluateInsolvencyVetoDominates(t *testing.T) {
	tests := []struct {
		name     string
		coverage float64
		capped   bool
	}{
		{name: "deep insolvency", coverage: 0.2, capped: true},
		{name: "just under the floor", coverage: 1.49, capped: true},
		{name: "at the floor", coverage: 1.5, capped: false},
		{name: "comfortably covered", coverage: 8, capped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := idealFundamentals(marketBench())
			f.InterestCoverage = models.Float(tt.coverage)
			res := NewEvaluator().Evaluate(f, idealTechnicals(), marketBench())

			if tt.capped {
				assert.LessOrEqual(t, res.FinalScore, 40.0)
				assert.Equal(t, []string{VetoInsolvency}, res.AppliedVetos)
				assert.Equal(t, models.RatingSell, res.Rating)
			} else {
				assert.InDelta(t, 100, res.FinalScore, 1e-9)
				assert.Empty(t, res.AppliedVetos)
			}
		})
	}
}

func TestEvaluateValuationVeto(t *testing.T) {
	b := marketBench()
	f := idealFundamentals(b)
	f.PEGRatio = models.Float(b.PEGFair + pegSpread + 0.5)
	res := NewEvaluator().Evaluate(f, idealTechnicals(), b)

	// The PEG line is past the band so quality drops to 80, and the veto
	// then caps quality credit at 50 in the blend.
	assert.InDelta(t, 80, res.QualityScore, 1e-9)
	assert.Equal(t, []string{VetoValuation}, res.AppliedVetos)
	assert.InDelta(t, 0.70*50+0.30*100, res.FinalScore, 1e-9)
	assert.Equal(t, models.RatingBuy, res.Rating)
}

func TestEvaluateDowntrendVeto(t *testing.T) {
	tc := idealTechnicals()
	tc.Price = models.Float(90)
	res := NewEvaluator().Evaluate(idealFundamentals(marketBench()), tc, marketBench())

	// Below both averages the trend and volume lines score zero, leaving
	// only the RSI bonus.
	assert.InDelta(t, 30, res.TimingScore, 1e-9)
	assert.Equal(t, []string{VetoDowntrend}, res.AppliedVetos)
	assert.InDelta(t, 0.70*100+0.30*30, res.FinalScore, 1e-9)
}

func TestEvaluateLowestCapWins(t *testing.T) {
	b := marketBench()
	f := idealFundamentals(b)
	f.InterestCoverage = models.Float(1.0)
	f.PEGRatio = models.Float(b.PEGFair + pegSpread + 1)
	res := NewEvaluator().Evaluate(f, idealTechnicals(), b)

	assert.Equal(t, []string{VetoInsolvency, VetoValuation}, res.AppliedVetos)
	assert.InDelta(t, 40, res.FinalScore, 1e-9)
}

func TestEvaluatePEGBandEndpoints(t *testing.T) {
	b := marketBench()
	b.PEGFair = 1.0

	f := &models.Fundamentals{PEGRatio: models.Float(1.0)}
	res := NewEvaluator().Evaluate(f, nil, b)
	assert.InDelta(t, pegPts, findMetric(t, res, "peg_ratio").Points, 1e-9)

	f.PEGRatio = models.Float(3.0)
	res = NewEvaluator().Evaluate(f, nil, b)
	assert.Zero(t, findMetric(t, res, "peg_ratio").Points)
}

func TestEvaluateRSITiers(t *testing.T) {
	tests := []struct {
		rsi  float64
		want float64
	}{
		{rsi: 55, want: rsiPts},
		{rsi: 40, want: rsiPts},
		{rsi: 65, want: rsiPts},
		{rsi: 35, want: rsiPts / 2},
		{rsi: 68, want: rsiPts / 2},
		{rsi: 25, want: 0},
		{rsi: 75, want: 0},
	}

	for _, tt := range tests {
		tc := &models.Technicals{RSI: models.Float(tt.rsi)}
		res := NewEvaluator().Evaluate(nil, tc, marketBench())
		assert.InDelta(t, tt.want, findMetric(t, res, "rsi").Points, 1e-9, "rsi %.0f", tt.rsi)
	}
}

func TestEvaluateVolumeConfirmation(t *testing.T) {
	b := marketBench()

	// Elevated volume without a rising price earns nothing.
	tc := &models.Technicals{
		Price:          models.Float(98),
		SMA50:          models.Float(100),
		SMA200:         models.Float(90),
		RelativeVolume: models.Float(1.5),
	}
	res := NewEvaluator().Evaluate(nil, tc, b)
	line := findMetric(t, res, "volume_confirmation")
	assert.Zero(t, line.Points)
	assert.False(t, line.DataMissing)

	// Midway through the band with a rising price earns half credit.
	tc.Price = models.Float(104)
	tc.RelativeVolume = models.Float((relVolFloor + relVolIdeal) / 2)
	res = NewEvaluator().Evaluate(nil, tc, b)
	assert.InDelta(t, volumePts/2, findMetric(t, res, "volume_confirmation").Points, 1e-9)
}

func TestEvaluateBetaDiscount(t *testing.T) {
	b := marketBench()
	tc := idealTechnicals()
	tc.Beta = models.Float(1.8)
	res := NewEvaluator().Evaluate(nil, tc, b)

	factor := b.BetaSafe / 1.8
	assert.InDelta(t, trendPts*factor, findMetric(t, res, "trend_sma50").Points, 1e-9)
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Rating
	}{
		{score: 100, want: models.RatingStrongBuy},
		{score: 80, want: models.RatingStrongBuy},
		{score: 79.9, want: models.RatingBuy},
		{score: 65, want: models.RatingBuy},
		{score: 64.9, want: models.RatingHold},
		{score: 45, want: models.RatingHold},
		{score: 44.9, want: models.RatingSell},
		{score: 0, want: models.RatingSell},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingFor(tt.score), "score %.1f", tt.score)
	}
}

func TestScoreResultJSONRoundTrip(t *testing.T) {
	f := idealFundamentals(marketBench())
	f.InterestCoverage = models.Float(1.2)
	res := NewEvaluator().Evaluate(f, idealTechnicals(), marketBench())
	res.Symbol = "ACME"

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var back models.ScoreResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, res, back)
}
