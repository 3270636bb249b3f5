package features

import (
    "math"

    "gonum.org/v1/gonum/stat"

    "EquityPulse/internal/domain/models"
)

// Indicator windows over daily bars.
const (
    SMAShortWindow = 50
    SMALongWindow  = 200
    RSIPeriod      = 14
    RelVolWindow   = 20

    tradingDaysPerYear = 252
)

// Closes extracts the close series from bars, oldest first.
func Closes(bars []models.Bar) []float64 {
    out := make([]float64, 0, len(bars))
    for _, b := range bars {
        out = append(out, b.Close)
    }
    return out
}

// Volumes extracts the volume series from bars, oldest first.
func Volumes(bars []models.Bar) []float64 {
    out := make([]float64, 0, len(bars))
    for _, b := range bars {
        out = append(out, b.Volume)
    }
    return out
}

// SMA returns the simple moving average over the trailing window.
// ok is false when the series is shorter than the window.
func SMA(closes []float64, window int) (float64, bool) {
    if window <= 0 || len(closes) < window {
        return 0, false
    }
    sum := 0.0
    for _, c := range closes[len(closes)-window:] {
        sum += c
    }
    return sum / float64(window), true
}

// RSI returns Wilder's relative strength index for the full series.
// Needs at least period+1 closes.
func RSI(closes []float64, period int) (float64, bool) {
    if period <= 0 || len(closes) < period+1 {
        return 0, false
    }
    var gain, loss float64
    for i := 1; i <= period; i++ {
        d := closes[i] - closes[i-1]
        if d > 0 {
            gain += d
        } else {
            loss -= d
        }
    }
    p := float64(period)
    avgGain := gain / p
    avgLoss := loss / p
    for i := period + 1; i < len(closes); i++ {
        d := closes[i] - closes[i-1]
        g, l := 0.0, 0.0
        if d > 0 {
            g = d
        } else {
            l = -d
        }
        avgGain = (avgGain*(p-1) + g) / p
        avgLoss = (avgLoss*(p-1) + l) / p
    }
    if avgLoss == 0 {
        return 100, true
    }
    rs := avgGain / avgLoss
    return 100 - 100/(1+rs), true
}

// RelativeVolume compares the latest volume against the average of the
// prior window days, excluding the latest.
func RelativeVolume(volumes []float64, window int) (float64, bool) {
    if window <= 0 || len(volumes) < window+1 {
        return 0, false
    }
    cur := volumes[len(volumes)-1]
    sum := 0.0
    for _, v := range volumes[len(volumes)-1-window : len(volumes)-1] {
        sum += v
    }
    avg := sum / float64(window)
    if avg <= 0 {
        return 0, false
    }
    return cur / avg, true
}

// LogReturns computes r_t = ln(C_t / C_{t-1}). It returns a slice of
// length len(closes)-1, or nil if insufficient data. Non-positive
// closes contribute a zero return.
func LogReturns(closes []float64) []float64 {
    if len(closes) < 2 {
        return nil
    }
    out := make([]float64, 0, len(closes)-1)
    for i := 1; i < len(closes); i++ {
        prev := closes[i-1]
        cur := closes[i]
        if prev <= 0 || cur <= 0 {
            out = append(out, 0)
            continue
        }
        out = append(out, math.Log(cur/prev))
    }
    return out
}

// RealizedVolatility computes annualized realized volatility over the
// trailing window of daily log returns.
func RealizedVolatility(logReturns []float64, window int) float64 {
    if window <= 1 || len(logReturns) < window {
        return 0
    }
    sigma := stat.StdDev(logReturns[len(logReturns)-window:], nil)
    return sigma * math.Sqrt(tradingDaysPerYear)
}

// BetaVsBenchmark regresses the symbol's daily log returns on the
// benchmark's over the overlapping tail of the two series.
func BetaVsBenchmark(closes, benchCloses []float64) (float64, bool) {
    rs := LogReturns(closes)
    rb := LogReturns(benchCloses)
    n := len(rs)
    if len(rb) < n {
        n = len(rb)
    }
    if n < 2 {
        return 0, false
    }
    rs = rs[len(rs)-n:]
    rb = rb[len(rb)-n:]
    varB := stat.Variance(rb, nil)
    if varB == 0 {
        return 0, false
    }
    return stat.Covariance(rs, rb, nil) / varB, true
}

// TechnicalsFromBars derives the indicator set the scorer consumes from
// a daily bar history, marking each filled indicator as derived.
// Indicators whose window exceeds the history are left nil so the
// scorer can flag them as missing.
func TechnicalsFromBars(bars []models.Bar) *models.Technicals {
    closes := Closes(bars)
    if len(closes) == 0 {
        return nil
    }
    t := &models.Technicals{Price: models.Float(closes[len(closes)-1])}
    if v, ok := SMA(closes, SMAShortWindow); ok {
        t.SMA50 = models.Float(v)
        t.DerivedMetrics = append(t.DerivedMetrics, "sma50")
    }
    if v, ok := SMA(closes, SMALongWindow); ok {
        t.SMA200 = models.Float(v)
        t.DerivedMetrics = append(t.DerivedMetrics, "sma200")
    }
    if v, ok := RSI(closes, RSIPeriod); ok {
        t.RSI = models.Float(v)
        t.DerivedMetrics = append(t.DerivedMetrics, "rsi")
    }
    if v, ok := RelativeVolume(Volumes(bars), RelVolWindow); ok {
        t.RelativeVolume = models.Float(v)
        t.DerivedMetrics = append(t.DerivedMetrics, "relative_volume")
    }
    return t
}
