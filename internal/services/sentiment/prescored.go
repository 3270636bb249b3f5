package sentiment

import (
	"context"
	"fmt"

	"EquityPulse/internal/domain/models"
	domsvc "EquityPulse/internal/domain/service"
	"EquityPulse/pkg/config"
	xhttp "EquityPulse/pkg/http"
)

// PrescoredProvider is the primary tier: the market-data vendor scores
// headlines on its side and returns one aggregate verdict per symbol.
type PrescoredProvider struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func NewPrescoredProvider(cfg *config.Config) *PrescoredProvider {
	timeout := cfg.Sentiment.TierTimeout
	if timeout <= 0 {
		timeout = DefaultTierTimeout
	}
	return &PrescoredProvider{
		baseURL: cfg.Sentiment.PrescoredURL,
		apiKey:  cfg.Sentiment.PrescoredAPIKey,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (p *PrescoredProvider) Tier() string { return models.TierPrescored }

type prescoredResponse struct {
	Symbol     string  `json:"symbol"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
	Scored     int     `json:"headlines_scored"`
}

// Analyze asks the vendor for its aggregate news score. The vendor sees
// the headlines through its own feed, so only the symbol travels.
func (p *PrescoredProvider) Analyze(ctx context.Context, symbol string, _ []models.Headline) (*models.SentimentResult, error) {
	if p.baseURL == "" || p.apiKey == "" {
		return nil, fmt.Errorf("prescored sentiment not configured")
	}

	var pr prescoredResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.baseURL + "/v1/news-sentiment",
		Headers: map[string]string{
			"X-Api-Key": p.apiKey,
		},
		QueryParams: map[string][]string{
			"symbol": {symbol},
		},
	}, &pr)
	if err != nil {
		return nil, fmt.Errorf("prescored sentiment: %w", err)
	}
	if pr.Score < -1 || pr.Score > 1 {
		return nil, fmt.Errorf("prescored sentiment: score %.3f out of range", pr.Score)
	}

	res := &models.SentimentResult{
		Score:      pr.Score,
		Confidence: pr.Confidence,
		Label:      models.SentimentLabel(pr.Label),
		Reasoning:  fmt.Sprintf("vendor aggregate over %d scored headlines", pr.Scored),
	}
	switch res.Label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		res.Label = LabelFor(pr.Score)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		res.Confidence = 0.7
	}
	return res, nil
}

var _ domsvc.SentimentProvider = (*PrescoredProvider)(nil)
