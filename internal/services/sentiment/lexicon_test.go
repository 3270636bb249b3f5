package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
)

func headlines(titles ...string) []models.Headline {
	out := make([]models.Headline, len(titles))
	for i, title := range titles {
		out[i] = models.Headline{Title: title, Source: "wire"}
	}
	return out
}

func TestLexiconBullishTape(t *testing.T) {
	res, err := NewLexiconProvider().Analyze(context.Background(), "ACME", headlines(
		"ACME beats estimates on record revenue",
		"Analysts upgrade ACME after strong demand",
	))
	require.NoError(t, err)

	assert.Equal(t, models.SentimentPositive, res.Label)
	assert.Greater(t, res.Score, 0.0)
	assert.Greater(t, res.Confidence, 0.3)
	assert.NotEmpty(t, res.Reasoning)
}

func TestLexiconBearishTape(t *testing.T) {
	res, err := NewLexiconProvider().Analyze(context.Background(), "ACME", headlines(
		"ACME faces SEC investigation over accounting",
		"Shares plunge as ACME cuts guidance",
	))
	require.NoError(t, err)

	assert.Equal(t, models.SentimentNegative, res.Label)
	assert.Less(t, res.Score, 0.0)
}

func TestLexiconEmptyTapeNeverFails(t *testing.T) {
	res, err := NewLexiconProvider().Analyze(context.Background(), "ACME", nil)
	require.NoError(t, err)

	assert.Equal(t, models.SentimentNeutral, res.Label)
	assert.Zero(t, res.Score)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
}

func TestLexiconUnmatchedTapeIsNeutral(t *testing.T) {
	res, err := NewLexiconProvider().Analyze(context.Background(), "ACME", headlines(
		"ACME to present at industry conference",
	))
	require.NoError(t, err)

	assert.Equal(t, models.SentimentNeutral, res.Label)
	assert.Zero(t, res.Score)
}

func TestMatchCountTokensAndPhrases(t *testing.T) {
	// One headline can hit several terms.
	assert.Equal(t, 2, matchCount(bearishTerms, "Company announces 10,000 layoffs amid restructuring"))

	// Single-word terms match whole tokens only.
	assert.Equal(t, 1, matchCount(bearishTerms, "Chipmaker fined by regulator"))
	assert.Equal(t, 0, matchCount(bearishTerms, "A well-defined strategy for growth"))

	// Phrases match as substrings.
	assert.Equal(t, 1, matchCount(bearishTerms, "Quarter marred by weak demand in Europe"))
	assert.Equal(t, 1, matchCount(bullishTerms, "Stock hits all-time high on contract news"))
}

func TestLabelForThresholds(t *testing.T) {
	assert.Equal(t, models.SentimentPositive, LabelFor(0.15))
	assert.Equal(t, models.SentimentNeutral, LabelFor(0.14))
	assert.Equal(t, models.SentimentNeutral, LabelFor(-0.14))
	assert.Equal(t, models.SentimentNegative, LabelFor(-0.15))
}
