package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"EquityPulse/internal/domain/models"
)

const layoffTitle = "Company announces 10,000 layoffs amid restructuring"

func TestSpinForcesWeakPositiveNegative(t *testing.T) {
	// A single bearish headline framed optimistically: the provider reads
	// it as mildly positive, the lexicon counts two bearish hits, and the
	// whole tape is flagged.
	res := &models.SentimentResult{Label: models.SentimentPositive, Score: 0.4, Confidence: 0.7}
	applySpin(res, headlines(layoffTitle))

	assert.Equal(t, 2, res.BearishHits)
	assert.True(t, res.SpinAdjusted)
	assert.Equal(t, models.SentimentNegative, res.Label)
	assert.InDelta(t, -0.2, res.Score, 1e-9)
}

func TestSpinWeakPositiveSparseHitsGoesNeutral(t *testing.T) {
	// Two hits but only a quarter of the tape flagged: pulled to neutral,
	// not negative.
	res := &models.SentimentResult{Label: models.SentimentPositive, Score: 0.3}
	applySpin(res, headlines(
		layoffTitle,
		"ACME opens new plant in Ohio",
		"ACME names product chief",
		"ACME to present at industry conference",
	))

	assert.Equal(t, models.SentimentNeutral, res.Label)
	assert.InDelta(t, 0.0, res.Score, 1e-9)
	assert.True(t, res.SpinAdjusted)
}

func TestSpinStrongPositiveKeepsLabel(t *testing.T) {
	// A confident positive read is dampened but not forced down.
	res := &models.SentimentResult{Label: models.SentimentPositive, Score: 0.8}
	applySpin(res, headlines(
		layoffTitle,
		"ACME opens new plant in Ohio",
		"ACME names product chief",
		"ACME to present at industry conference",
	))

	assert.Equal(t, models.SentimentPositive, res.Label)
	assert.InDelta(t, 0.6, res.Score, 1e-9)
	assert.True(t, res.SpinAdjusted)
}

func TestSpinSingleHitDampensOnly(t *testing.T) {
	res := &models.SentimentResult{Label: models.SentimentPositive, Score: 0.4}
	applySpin(res, headlines(
		"Shares of ACME plunge at the open",
		"ACME schedules investor day",
	))

	assert.Equal(t, 1, res.BearishHits)
	assert.InDelta(t, 0.2, res.Score, 1e-9)
	assert.Equal(t, models.SentimentPositive, res.Label)
}

func TestSpinLeavesNonPositiveUntouched(t *testing.T) {
	res := &models.SentimentResult{Label: models.SentimentNegative, Score: -0.5}
	applySpin(res, headlines(layoffTitle))

	assert.Equal(t, 2, res.BearishHits)
	assert.InDelta(t, -0.5, res.Score, 1e-9)
	assert.False(t, res.SpinAdjusted)
}

func TestSpinNoHeadlinesNoChange(t *testing.T) {
	res := &models.SentimentResult{Label: models.SentimentPositive, Score: 0.9}
	applySpin(res, nil)

	assert.Zero(t, res.BearishHits)
	assert.False(t, res.SpinAdjusted)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
}
