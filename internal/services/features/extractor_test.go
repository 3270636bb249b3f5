package features

import (
    "math"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "EquityPulse/internal/domain/models"
)

func dailyBars(closes []float64, volume float64) []models.Bar {
    day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
    out := make([]models.Bar, len(closes))
    for i, c := range closes {
        out[i] = models.Bar{
            Day:    day.AddDate(0, 0, i),
            Symbol: "ACME",
            Open:   c,
            High:   c,
            Low:    c,
            Close:  c,
            Volume: volume,
        }
    }
    return out
}

func constant(n int, v float64) []float64 {
    out := make([]float64, n)
    for i := range out {
        out[i] = v
    }
    return out
}

func TestSMA(t *testing.T) {
    closes := []float64{1, 2, 3, 4, 5}

    v, ok := SMA(closes, 3)
    require.True(t, ok)
    assert.InDelta(t, 4.0, v, 1e-12)

    v, ok = SMA(closes, 5)
    require.True(t, ok)
    assert.InDelta(t, 3.0, v, 1e-12)

    _, ok = SMA(closes, 6)
    assert.False(t, ok)
    _, ok = SMA(nil, 1)
    assert.False(t, ok)
}

func TestRSI(t *testing.T) {
    up := make([]float64, 16)
    down := make([]float64, 16)
    for i := range up {
        up[i] = 100 + float64(i)
        down[i] = 100 - float64(i)
    }

    v, ok := RSI(up, RSIPeriod)
    require.True(t, ok)
    assert.InDelta(t, 100.0, v, 1e-9)

    v, ok = RSI(down, RSIPeriod)
    require.True(t, ok)
    assert.InDelta(t, 0.0, v, 1e-9)

    // Alternating unit moves balance gains and losses.
    alt := make([]float64, 15)
    alt[0] = 100
    for i := 1; i < len(alt); i++ {
        if i%2 == 1 {
            alt[i] = alt[i-1] + 1
        } else {
            alt[i] = alt[i-1] - 1
        }
    }
    v, ok = RSI(alt, RSIPeriod)
    require.True(t, ok)
    assert.InDelta(t, 50.0, v, 1e-9)

    _, ok = RSI(up[:14], RSIPeriod)
    assert.False(t, ok)
}

func TestRelativeVolume(t *testing.T) {
    vols := append(constant(RelVolWindow, 100), 250)

    v, ok := RelativeVolume(vols, RelVolWindow)
    require.True(t, ok)
    assert.InDelta(t, 2.5, v, 1e-12)

    _, ok = RelativeVolume(vols[:RelVolWindow], RelVolWindow)
    assert.False(t, ok)

    _, ok = RelativeVolume(append(constant(RelVolWindow, 0), 100), RelVolWindow)
    assert.False(t, ok)
}

func TestLogReturns(t *testing.T) {
    rets := LogReturns([]float64{100, 110, 99})
    require.Len(t, rets, 2)
    assert.InDelta(t, math.Log(1.1), rets[0], 1e-12)
    assert.InDelta(t, math.Log(0.9), rets[1], 1e-12)

    assert.Nil(t, LogReturns([]float64{100}))

    // Non-positive closes degrade to a zero return rather than NaN.
    rets = LogReturns([]float64{100, 0, 100})
    require.Len(t, rets, 2)
    assert.Zero(t, rets[0])
    assert.Zero(t, rets[1])
}

func TestRealizedVolatility(t *testing.T) {
    assert.Zero(t, RealizedVolatility(constant(30, 0.01), 30))
    assert.Zero(t, RealizedVolatility([]float64{0.01}, 5))

    rets := []float64{0.01, -0.01, 0.01, -0.01}
    want := math.Sqrt(4e-4/3.0) * math.Sqrt(252)
    assert.InDelta(t, want, RealizedVolatility(rets, 4), 1e-9)
}

func TestBetaVsBenchmark(t *testing.T) {
    benchRets := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02}
    bench := []float64{100}
    sym := []float64{40}
    for _, r := range benchRets {
        bench = append(bench, bench[len(bench)-1]*math.Exp(r))
        sym = append(sym, sym[len(sym)-1]*math.Exp(2*r))
    }

    beta, ok := BetaVsBenchmark(sym, bench)
    require.True(t, ok)
    assert.InDelta(t, 2.0, beta, 1e-9)

    _, ok = BetaVsBenchmark(sym, constant(len(sym), 100))
    assert.False(t, ok)
    _, ok = BetaVsBenchmark([]float64{100}, bench)
    assert.False(t, ok)
}

func TestTechnicalsFromBars(t *testing.T) {
    assert.Nil(t, TechnicalsFromBars(nil))

    full := TechnicalsFromBars(dailyBars(constant(250, 50), 1000))
    require.NotNil(t, full)
    require.NotNil(t, full.Price)
    assert.InDelta(t, 50.0, *full.Price, 1e-12)
    assert.NotNil(t, full.SMA50)
    assert.NotNil(t, full.SMA200)
    assert.NotNil(t, full.RSI)
    assert.NotNil(t, full.RelativeVolume)
    assert.Nil(t, full.Beta)
    assert.Equal(t, []string{"sma50", "sma200", "rsi", "relative_volume"}, full.DerivedMetrics)

    short := TechnicalsFromBars(dailyBars(constant(60, 50), 1000))
    require.NotNil(t, short)
    assert.NotNil(t, short.SMA50)
    assert.Nil(t, short.SMA200)
    assert.NotNil(t, short.RSI)
    assert.NotContains(t, short.DerivedMetrics, "sma200")

    tiny := TechnicalsFromBars(dailyBars(constant(10, 50), 1000))
    require.NotNil(t, tiny)
    assert.NotNil(t, tiny.Price)
    assert.Nil(t, tiny.SMA50)
    assert.Nil(t, tiny.RSI)
    assert.Nil(t, tiny.RelativeVolume)
}
