package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"EquityPulse/internal/domain/models"
	domsvc "EquityPulse/internal/domain/service"
)

// Label thresholds on the numeric score, shared by every tier so a
// score and its label can never disagree.
const (
	positiveFloor = 0.15
	negativeCeil  = -0.15
)

// LabelFor buckets a numeric score in [-1, 1] into its label.
func LabelFor(score float64) models.SentimentLabel {
	switch {
	case score >= positiveFloor:
		return models.SentimentPositive
	case score <= negativeCeil:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// bearishTerms backs both the tertiary scorer and the spin correction.
// Single words match whole tokens; phrases match as substrings.
var bearishTerms = []string{
	"layoff", "layoffs", "restructuring", "downsizing", "job cuts",
	"bankruptcy", "insolvency", "going concern", "default", "defaulted",
	"lawsuit", "sued", "probe", "investigation", "subpoena", "fraud",
	"fined", "penalty", "recall", "downgrade", "downgraded",
	"plunge", "plunges", "tumble", "tumbles", "slump", "sell-off", "selloff",
	"missed estimates", "guidance cut", "cuts guidance", "profit warning",
	"write-down", "writedown", "impairment", "delisting", "dilution",
	"data breach", "strike", "resignation", "resigns", "short seller",
	"halted", "warns", "weak demand", "losses widen",
}

var bullishTerms = []string{
	"beats", "beat estimates", "record revenue", "record profit", "record quarter",
	"surge", "surges", "rally", "rallies", "upgrade", "upgraded",
	"raises guidance", "raised guidance", "buyback", "dividend increase",
	"breakthrough", "approval", "approved", "outperform", "strong demand",
	"all-time high", "contract win", "partnership", "expansion",
	"profit jumps", "profit rises", "tops expectations",
}

// matchCount returns how many lexicon terms occur in the title.
func matchCount(terms []string, title string) int {
	lower := strings.ToLower(title)
	toks := tokenSet(lower)
	n := 0
	for _, term := range terms {
		if strings.ContainsAny(term, " -") {
			if strings.Contains(lower, term) {
				n++
			}
		} else if toks[term] {
			n++
		}
	}
	return n
}

func tokenSet(lower string) map[string]bool {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// LexiconProvider is the tertiary tier: a local keyword scorer with no
// external dependency, so it can never fail.
type LexiconProvider struct{}

func NewLexiconProvider() *LexiconProvider { return &LexiconProvider{} }

func (p *LexiconProvider) Tier() string { return models.TierLexicon }

func (p *LexiconProvider) Analyze(_ context.Context, _ string, headlines []models.Headline) (*models.SentimentResult, error) {
	var bull, bear int
	for _, h := range headlines {
		bull += matchCount(bullishTerms, h.Title)
		bear += matchCount(bearishTerms, h.Title)
	}

	res := &models.SentimentResult{
		Label:      models.SentimentNeutral,
		Confidence: 0.3,
	}
	total := bull + bear
	if total == 0 {
		res.Reasoning = fmt.Sprintf("no lexicon terms matched across %d headlines", len(headlines))
		return res, nil
	}
	res.Score = float64(bull-bear) / float64(total)
	res.Label = LabelFor(res.Score)
	res.Confidence = math.Min(0.6, 0.3+0.05*float64(total))
	res.Reasoning = fmt.Sprintf("lexicon matched %d bullish and %d bearish terms across %d headlines", bull, bear, len(headlines))
	return res, nil
}

var _ domsvc.SentimentProvider = (*LexiconProvider)(nil)
