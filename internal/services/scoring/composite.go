package scoring

import (
	"fmt"

	"EquityPulse/internal/domain/models"
)

// Blend weights for the final score.
const (
	qualityWeight = 0.70
	timingWeight  = 0.30
)

// Quality metric weights, summing to 100.
const (
	pegPts    = 20.0
	fcfPts    = 20.0
	roePts    = 15.0
	marginPts = 15.0
	debtPts   = 15.0
	growthPts = 15.0
)

// Timing metric weights, summing to 100. Trend points are per moving
// average.
const (
	trendPts  = 25.0
	rsiPts    = 30.0
	volumePts = 20.0
)

const (
	// pegSpread is the width of the PEG scoring band above peg_fair.
	// The band's far edge doubles as the valuation veto trigger.
	pegSpread = 2.0
	// debtZeroFactor places the zero-scoring debt/EBITDA level at a
	// multiple of the benchmark's safe level.
	debtZeroFactor = 2.0
	// trendIdeal is the price premium over a moving average earning
	// full trend credit.
	trendIdeal = 0.08
	// betaFactorFloor bounds how far trend credit can be discounted
	// for high-beta names.
	betaFactorFloor = 0.5
)

// RSI sweet zone and its half-credit shoulders.
const (
	rsiSweetLow     = 40.0
	rsiSweetHigh    = 65.0
	rsiShoulderLow  = 30.0
	rsiShoulderHigh = 70.0
)

// Volume confirmation band for relative volume.
const (
	relVolFloor = 1.0
	relVolIdeal = 1.75
)

// Rating band floors on the post-veto score.
const (
	strongBuyFloor = 80.0
	buyFloor       = 65.0
	holdFloor      = 45.0
)

// Evaluator combines fundamental quality and technical timing into one
// conviction score against a resolved benchmark profile.
type Evaluator struct{}

func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate produces the composite score. It is a total function: nil
// inputs and missing metrics degrade to zero-point breakdown lines
// flagged data_missing, never errors.
func (e *Evaluator) Evaluate(f *models.Fundamentals, t *models.Technicals, bench models.BenchmarkProfile) models.ScoreResult {
	if f == nil {
		f = &models.Fundamentals{}
	}
	if t == nil {
		t = &models.Technicals{}
	}

	qualityLines := qualityMetrics(f, bench)
	timingLines := timingMetrics(t, bench)

	var quality, timing float64
	for _, m := range qualityLines {
		quality += m.Points
	}
	for _, m := range timingLines {
		timing += m.Points
	}

	raw := qualityWeight*quality + timingWeight*timing
	final, fired := applyVetoes(raw, vetoInput{
		fundamentals: *f,
		technicals:   *t,
		bench:        bench,
		quality:      quality,
		timing:       timing,
	})

	res := models.ScoreResult{
		QualityScore:      quality,
		TimingScore:       timing,
		FinalScore:        final,
		Rating:            RatingFor(final),
		AppliedVetos:      fired,
		Breakdown:         append(qualityLines, timingLines...),
		Benchmark:         bench.Key,
		BenchmarkFallback: bench.Fallback,
	}
	res.Commentary = commentary(res, bench)
	return res
}

// RatingFor buckets a post-veto final score into its label.
func RatingFor(score float64) models.Rating {
	switch {
	case score >= strongBuyFloor:
		return models.RatingStrongBuy
	case score >= buyFloor:
		return models.RatingBuy
	case score >= holdFloor:
		return models.RatingHold
	default:
		return models.RatingSell
	}
}

func qualityMetrics(f *models.Fundamentals, b models.BenchmarkProfile) []models.MetricScore {
	return []models.MetricScore{
		metricLine("peg_ratio", f.PEGRatio, b.PEGFair, b.PEGFair+pegSpread, pegPts, true,
			fmt.Sprintf("full credit at PEG %.2f or below, none above %.2f", b.PEGFair, b.PEGFair+pegSpread)),
		metricLine("fcf_yield", f.FCFYield, 0, b.FCFYieldStrong, fcfPts, false,
			fmt.Sprintf("full credit at %.1f%% free cash flow yield", b.FCFYieldStrong*100)),
		metricLine("roe", f.ROE, 0, b.ROEStrong, roePts, false,
			fmt.Sprintf("full credit at %.1f%% return on equity", b.ROEStrong*100)),
		metricLine("net_margin", f.NetMargin, 0, b.MarginHealthy, marginPts, false,
			fmt.Sprintf("full credit at %.1f%% net margin", b.MarginHealthy*100)),
		metricLine("debt_to_ebitda", f.DebtToEBITDA, 0, debtZeroFactor*b.DebtSafe, debtPts, true,
			fmt.Sprintf("full credit at zero debt, none above %.1fx EBITDA", debtZeroFactor*b.DebtSafe)),
		metricLine("revenue_growth", f.RevenueGrowth, 0, b.GrowthStrong, growthPts, false,
			fmt.Sprintf("full credit at %.1f%% revenue growth", b.GrowthStrong*100)),
	}
}

func timingMetrics(t *models.Technicals, b models.BenchmarkProfile) []models.MetricScore {
	return []models.MetricScore{
		trendLine("trend_sma50", t.Price, t.SMA50, t.Beta, b.BetaSafe),
		trendLine("trend_sma200", t.Price, t.SMA200, t.Beta, b.BetaSafe),
		rsiLine(t.RSI),
		volumeLine(t),
	}
}

// metricLine interpolates one fundamental metric and renders its
// breakdown row. A nil value scores zero and is flagged data_missing.
func metricLine(name string, value *float64, zeroPoint, idealPoint, maxPts float64, invert bool, detail string) models.MetricScore {
	ms := models.MetricScore{Metric: name, MaxPoints: maxPts, Detail: detail}
	if value == nil {
		ms.DataMissing = true
		return ms
	}
	ms.Points = ScoreMetric(*value, zeroPoint, idealPoint, maxPts, invert)
	ms.Value = value
	return ms
}

// trendLine scores the price distance above one moving average,
// discounted for names running hotter than the benchmark's safe beta.
// The reported value is the distance fraction, not the raw price.
func trendLine(name string, price, sma, beta *float64, betaSafe float64) models.MetricScore {
	ms := models.MetricScore{
		Metric:    name,
		MaxPoints: trendPts,
		Detail:    fmt.Sprintf("full credit %.0f%% above the average, discounted above beta %.2f", trendIdeal*100, betaSafe),
	}
	if price == nil || sma == nil || *sma == 0 {
		ms.DataMissing = true
		return ms
	}
	dist := *price / *sma - 1
	ms.Points = ScoreMetric(dist, 0, trendIdeal, trendPts, false) * betaFactor(beta, betaSafe)
	ms.Value = models.Float(dist)
	return ms
}

// betaFactor discounts trend credit for securities with beta beyond the
// benchmark's safe level. Missing beta is not penalized.
func betaFactor(beta *float64, betaSafe float64) float64 {
	if beta == nil || betaSafe <= 0 || *beta <= betaSafe {
		return 1
	}
	f := betaSafe / *beta
	if f < betaFactorFloor {
		f = betaFactorFloor
	}
	return f
}

// rsiLine awards the momentum bonus in tiers rather than a linear ramp:
// full credit inside the sweet zone, half credit on the shoulders,
// nothing when oversold or overbought.
func rsiLine(rsi *float64) models.MetricScore {
	ms := models.MetricScore{
		Metric:    "rsi",
		MaxPoints: rsiPts,
		Detail: fmt.Sprintf("full bonus between %.0f and %.0f, half between %.0f and %.0f",
			rsiSweetLow, rsiSweetHigh, rsiShoulderLow, rsiShoulderHigh),
	}
	if rsi == nil {
		ms.DataMissing = true
		return ms
	}
	switch v := *rsi; {
	case v >= rsiSweetLow && v <= rsiSweetHigh:
		ms.Points = rsiPts
	case v >= rsiShoulderLow && v <= rsiShoulderHigh:
		ms.Points = rsiPts / 2
	}
	ms.Value = rsi
	return ms
}

// volumeLine awards confirmation credit only when elevated volume
// accompanies a price above its 50-day average.
func volumeLine(t *models.Technicals) models.MetricScore {
	ms := models.MetricScore{
		Metric:    "volume_confirmation",
		MaxPoints: volumePts,
		Detail: fmt.Sprintf("requires relative volume above %.1f with price above the 50-day average, full credit at %.2f",
			relVolFloor, relVolIdeal),
	}
	if t.RelativeVolume == nil || t.Price == nil || t.SMA50 == nil {
		ms.DataMissing = true
		return ms
	}
	ms.Value = t.RelativeVolume
	if *t.Price > *t.SMA50 && *t.RelativeVolume > relVolFloor {
		ms.Points = ScoreMetric(*t.RelativeVolume, relVolFloor, relVolIdeal, volumePts, false)
	}
	return ms
}

func commentary(res models.ScoreResult, bench models.BenchmarkProfile) []string {
	out := []string{
		fmt.Sprintf("quality %.1f/100 and timing %.1f/100 blended %.0f/%.0f", res.QualityScore, res.TimingScore, qualityWeight*100, timingWeight*100),
	}
	if bench.Fallback {
		out = append(out, fmt.Sprintf("sector not in the benchmark catalog, scored against the %s profile", bench.Key))
	}
	for _, name := range res.AppliedVetos {
		switch name {
		case VetoInsolvency:
			out = append(out, fmt.Sprintf("insolvency veto: interest coverage below %.1f caps the score at %.0f", interestCoverageFloor, insolvencyCap))
		case VetoValuation:
			out = append(out, fmt.Sprintf("valuation veto: PEG above %.2f caps quality credit at %.0f", bench.PEGFair+pegSpread, valuationQualityCap))
		case VetoDowntrend:
			out = append(out, fmt.Sprintf("downtrend veto: price below both moving averages caps timing credit at %.0f", downtrendTimingCap))
		}
	}
	return out
}
