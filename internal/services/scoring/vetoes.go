package scoring

import (
	"math"

	"EquityPulse/internal/domain/models"
)

// Veto identifiers, reported in ScoreResult.AppliedVetos in rule order.
const (
	VetoInsolvency = "insolvency"
	VetoValuation  = "valuation"
	VetoDowntrend  = "downtrend"
)

// Hard override thresholds, shared with the commentary text so the
// explanation can never drift from the rule.
const (
	interestCoverageFloor = 1.5
	insolvencyCap         = 40.0
	valuationQualityCap   = 50.0
	downtrendTimingCap    = 30.0
)

type vetoInput struct {
	fundamentals models.Fundamentals
	technicals   models.Technicals
	bench        models.BenchmarkProfile
	quality      float64
	timing       float64
}

// vetoRule checks one override condition and, when it fires, returns a
// cap on the blended final score.
type vetoRule struct {
	name  string
	check func(vetoInput) (float64, bool)
}

// vetoRules run in order. Every rule that fires contributes its name to
// the applied list and its cap to the final min.
var vetoRules = []vetoRule{
	{
		name: VetoInsolvency,
		check: func(in vetoInput) (float64, bool) {
			ic := in.fundamentals.InterestCoverage
			if ic == nil || *ic >= interestCoverageFloor {
				return 0, false
			}
			return insolvencyCap, true
		},
	},
	{
		name: VetoValuation,
		check: func(in vetoInput) (float64, bool) {
			peg := in.fundamentals.PEGRatio
			if peg == nil || *peg <= in.bench.PEGFair+pegSpread {
				return 0, false
			}
			capped := qualityWeight*math.Min(in.quality, valuationQualityCap) + timingWeight*in.timing
			return capped, true
		},
	},
	{
		name: VetoDowntrend,
		check: func(in vetoInput) (float64, bool) {
			t := in.technicals
			if t.Price == nil || t.SMA50 == nil || t.SMA200 == nil {
				return 0, false
			}
			if *t.Price >= *t.SMA50 || *t.Price >= *t.SMA200 {
				return 0, false
			}
			capped := qualityWeight*in.quality + timingWeight*math.Min(in.timing, downtrendTimingCap)
			return capped, true
		},
	},
}

// applyVetoes evaluates every rule against the raw blended score and
// returns the lowest surviving score plus the fired rule names in order.
func applyVetoes(raw float64, in vetoInput) (float64, []string) {
	final := raw
	fired := []string{}
	for _, rule := range vetoRules {
		limit, ok := rule.check(in)
		if !ok {
			continue
		}
		fired = append(fired, rule.name)
		if limit < final {
			final = limit
		}
	}
	return final, fired
}
