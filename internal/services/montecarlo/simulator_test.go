package montecarlo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drift builds n closes compounding at a fixed daily log return.
func drift(n int, start, dailyLogReturn float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start * math.Exp(dailyLogReturn*float64(i))
	}
	return out
}

// choppy builds n closes alternating between an up and a down day, so
// the fitted volatility is positive without any randomness.
func choppy(n int, start float64) []float64 {
	out := make([]float64, n)
	price := start
	for i := range out {
		out[i] = price
		if i%2 == 0 {
			price *= 1.012
		} else {
			price *= 0.994
		}
	}
	return out
}

func TestSimulateInsufficientHistory(t *testing.T) {
	_, err := NewSimulator().Simulate(drift(59, 100, 0), 30, 500)
	require.Error(t, err)

	var insufficient *InsufficientHistoryError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 59, insufficient.Observations)
	assert.Equal(t, MinObservations, insufficient.Required)
	assert.Contains(t, err.Error(), "insufficient price history")
}

func TestSimulateFixedSeedReproducible(t *testing.T) {
	prices := choppy(120, 100)

	first, err := NewSimulator().Simulate(prices, 60, 2000, WithSeed(42))
	require.NoError(t, err)
	second, err := NewSimulator().Simulate(prices, 60, 2000, WithSeed(42))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	third, err := NewSimulator().Simulate(prices, 60, 2000, WithSeed(7))
	require.NoError(t, err)
	assert.NotEqual(t, first.P50, third.P50)
}

func TestSimulateZeroVolatility(t *testing.T) {
	flat := make([]float64, 80)
	for i := range flat {
		flat[i] = 100
	}
	res, err := NewSimulator().Simulate(flat, 30, 1000, WithSeed(1))
	require.NoError(t, err)

	assert.InDelta(t, 100, res.P10, 1e-9)
	assert.InDelta(t, 100, res.P50, 1e-9)
	assert.InDelta(t, 100, res.P90, 1e-9)
	assert.Zero(t, res.ProbabilityOfLoss)
	assert.Zero(t, res.ValueAtRisk95)
	assert.Zero(t, res.AnnualizedVolatility)
	require.Len(t, res.Histogram, 1)
	assert.Equal(t, 1000, res.Histogram[0].Count)
}

func TestSimulateDeterministicDrift(t *testing.T) {
	// A constant daily log return fits with zero volatility, so every
	// path lands exactly on the compounded drift.
	const r = 0.001
	prices := drift(90, 50, r)
	res, err := NewSimulator().Simulate(prices, 40, 300, WithSeed(3))
	require.NoError(t, err)

	want := prices[len(prices)-1] * math.Exp(r*40)
	assert.InDelta(t, want, res.P50, want*1e-9)
	assert.InDelta(t, r, res.DailyMu, 1e-12)
	assert.InDelta(t, 0, res.DailySigma, 1e-12)
}

func TestSimulateSummaryInvariants(t *testing.T) {
	res, err := NewSimulator().Simulate(choppy(250, 80), 120, 4000, WithSeed(11))
	require.NoError(t, err)

	assert.Equal(t, 120, res.HorizonDays)
	assert.Equal(t, 4000, res.Paths)
	assert.LessOrEqual(t, res.P10, res.P50)
	assert.LessOrEqual(t, res.P50, res.P90)
	assert.GreaterOrEqual(t, res.ProbabilityOfLoss, 0.0)
	assert.LessOrEqual(t, res.ProbabilityOfLoss, 1.0)
	assert.GreaterOrEqual(t, res.ValueAtRisk95, 0.0)
	assert.Greater(t, res.DailySigma, 0.0)
	assert.InDelta(t, res.DailySigma*math.Sqrt(TradingDaysPerYear), res.AnnualizedVolatility, 1e-12)

	total := 0
	for _, bin := range res.Histogram {
		total += bin.Count
	}
	assert.Equal(t, 4000, total)
}

func TestSimulatePercentilesConverge(t *testing.T) {
	prices := choppy(250, 80)

	small, err := NewSimulator().Simulate(prices, 30, 5000)
	require.NoError(t, err)
	large, err := NewSimulator().Simulate(prices, 30, 50000)
	require.NoError(t, err)

	assert.InDelta(t, large.P50, small.P50, large.P50*0.02)
	assert.InDelta(t, large.P10, small.P10, large.P10*0.03)
	assert.InDelta(t, large.P90, small.P90, large.P90*0.03)
}

func TestSimulateDefaults(t *testing.T) {
	res, err := NewSimulator().Simulate(choppy(120, 100), 0, 0, WithSeed(5))
	require.NoError(t, err)

	assert.Equal(t, DefaultHorizonDays, res.HorizonDays)
	assert.Equal(t, DefaultPaths, res.Paths)
}

func TestSimulateHistogramBinsOption(t *testing.T) {
	res, err := NewSimulator().Simulate(choppy(120, 100), 30, 1500, WithSeed(9), WithBins(8))
	require.NoError(t, err)

	require.Len(t, res.Histogram, 8)
	for i := 1; i < len(res.Histogram); i++ {
		assert.InDelta(t, res.Histogram[i-1].High, res.Histogram[i].Low, 1e-12)
	}
}
