package sentiment

import (
	"math"

	"EquityPulse/internal/domain/models"
)

// Spin correction tuning. Upstream providers routinely frame negative
// events optimistically ("restructuring" for layoffs), so a positive
// read over a bearish tape gets pulled back toward the evidence.
const (
	weakPositiveCeiling = 0.5
	spinForceHits       = 2
	spinForcedScore     = -0.2
)

// applySpin scans the headlines against the bearish lexicon and corrects
// a positive result: the score is penalized in proportion to the
// fraction of flagged headlines, and a weak positive with repeated
// bearish hits is forced down to neutral or negative.
func applySpin(res *models.SentimentResult, headlines []models.Headline) {
	if res == nil || len(headlines) == 0 {
		return
	}

	matches, flagged := 0, 0
	for _, h := range headlines {
		n := matchCount(bearishTerms, h.Title)
		matches += n
		if n > 0 {
			flagged++
		}
	}
	res.BearishHits = matches
	if matches == 0 || res.Label != models.SentimentPositive {
		return
	}

	original := res.Score
	fraction := float64(flagged) / float64(len(headlines))
	res.Score = original * (1 - fraction)
	res.SpinAdjusted = true

	if matches >= spinForceHits && original < weakPositiveCeiling {
		if fraction >= 0.5 {
			res.Label = models.SentimentNegative
			res.Score = math.Min(res.Score, spinForcedScore)
		} else {
			res.Label = models.SentimentNeutral
			res.Score = math.Min(res.Score, 0)
		}
		return
	}
	res.Label = LabelFor(res.Score)
}
