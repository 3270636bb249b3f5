package models

// SentimentLabel is the discrete classification of headline tone.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Cascade tier names, ordered from most to least preferred.
const (
	TierPrescored = "prescored"
	TierReasoning = "reasoning"
	TierLexicon   = "lexicon"
)

// SentimentResult carries the tone classification for one symbol along
// with which cascade tier produced it.
type SentimentResult struct {
	Symbol string         `json:"symbol,omitempty"`
	Label  SentimentLabel `json:"label"`
	// Score is in [-1, 1], negative meaning bearish tone.
	Score float64 `json:"score"`
	// Confidence is in [0, 1].
	Confidence   float64 `json:"confidence"`
	SourceTier   string  `json:"source_tier"`
	Reasoning    string  `json:"reasoning,omitempty"`
	BearishHits  int     `json:"bearish_hits,omitempty"`
	SpinAdjusted bool    `json:"spin_adjusted,omitempty"`
	// Cached marks a result replayed from the cache rather than freshly
	// produced by SourceTier. Never serialized, so cached entries always
	// unmarshal as fresh.
	Cached bool `json:"-"`
}
