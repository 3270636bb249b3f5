package models

import "time"

// AnalysisReport bundles every analysis section for one symbol. Sections
// that failed are nil with the cause recorded in Errors under the
// section name.
type AnalysisReport struct {
	Symbol      string            `json:"symbol"`
	GeneratedAt time.Time         `json:"generated_at"`
	Score       *ScoreResult      `json:"score,omitempty"`
	Insider     *InsiderSignal    `json:"insider,omitempty"`
	Sentiment   *SentimentResult  `json:"sentiment,omitempty"`
	Projection  *ProjectionResult `json:"projection,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// SignalEvent is the condensed report published to the signals topic.
type SignalEvent struct {
	Symbol           string   `json:"symbol"`
	FinalScore       float64  `json:"final_score"`
	Rating           Rating   `json:"rating"`
	AppliedVetos     []string `json:"applied_vetos,omitempty"`
	InsiderKind      string   `json:"insider_kind,omitempty"`
	SentimentLabel   string   `json:"sentiment_label,omitempty"`
	MedianProjection float64  `json:"median_projection,omitempty"`
	GeneratedAt      int64    `json:"generated_at"`
}
