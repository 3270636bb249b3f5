package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"EquityPulse/internal/domain/models"
	domsvc "EquityPulse/internal/domain/service"
	"EquityPulse/pkg/config"
)

const (
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultMaxTokens      = 512
)

const reasoningSystemPrompt = `You are an equity news analyst. Given recent headlines for one ticker, judge the aggregate tone for shareholders. Respond with a single JSON object, no prose: {"label":"positive|neutral|negative","score":<float -1..1>,"confidence":<float 0..1>,"reasoning":"<one sentence>"}`

// ReasoningProvider is the secondary tier: a language model reads the
// actual headlines and returns a structured verdict.
type ReasoningProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	enabled   bool
}

func NewReasoningProvider(cfg *config.Config) *ReasoningProvider {
	p := &ReasoningProvider{
		model:     cfg.Sentiment.AnthropicModel,
		maxTokens: int64(cfg.Sentiment.MaxTokens),
	}
	if p.model == "" {
		p.model = defaultAnthropicModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if key := cfg.Sentiment.AnthropicAPIKey; key != "" {
		p.client = anthropic.NewClient(option.WithAPIKey(key))
		p.enabled = true
	}
	return p
}

func (p *ReasoningProvider) Tier() string { return models.TierReasoning }

type reasoningVerdict struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (p *ReasoningProvider) Analyze(ctx context.Context, symbol string, headlines []models.Headline) (*models.SentimentResult, error) {
	if !p.enabled {
		return nil, fmt.Errorf("reasoning sentiment not configured")
	}
	if len(headlines) == 0 {
		return nil, fmt.Errorf("reasoning sentiment: no headlines to read")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(symbol, headlines))),
		},
	}
	params.Temperature = anthropic.Float(0.2)
	params.System = []anthropic.TextBlockParam{{Text: reasoningSystemPrompt}}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("reasoning sentiment: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	verdict, err := parseVerdict(text.String())
	if err != nil {
		return nil, fmt.Errorf("reasoning sentiment: %w", err)
	}

	res := &models.SentimentResult{
		Score:      verdict.Score,
		Confidence: verdict.Confidence,
		Label:      models.SentimentLabel(verdict.Label),
		Reasoning:  verdict.Reasoning,
	}
	switch res.Label {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		res.Label = LabelFor(res.Score)
	}
	return res, nil
}

func buildPrompt(symbol string, headlines []models.Headline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\nHeadlines:\n", symbol)
	for _, h := range headlines {
		fmt.Fprintf(&b, "- %s", h.Title)
		if h.Source != "" {
			fmt.Fprintf(&b, " (%s)", h.Source)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// parseVerdict reads the completion, tolerating markdown fences around
// the JSON object.
func parseVerdict(raw string) (*reasoningVerdict, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "{"); i >= 0 {
		if j := strings.LastIndex(raw, "}"); j > i {
			raw = raw[i : j+1]
		}
	}
	var v reasoningVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	if v.Score < -1 || v.Score > 1 {
		return nil, fmt.Errorf("verdict score %.3f out of range", v.Score)
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		v.Confidence = 0.5
	}
	return &v, nil
}

var _ domsvc.SentimentProvider = (*ReasoningProvider)(nil)
