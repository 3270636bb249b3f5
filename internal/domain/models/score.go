package models

// Rating buckets a final composite score into an actionable label.
type Rating string

const (
	RatingStrongBuy Rating = "Strong Buy"
	RatingBuy       Rating = "Buy"
	RatingHold      Rating = "Hold"
	RatingSell      Rating = "Sell"
)

// MetricScore is one line of the score breakdown. Points is the
// interpolated contribution, MaxPoints the ceiling for the metric.
type MetricScore struct {
	Metric      string   `json:"metric"`
	Points      float64  `json:"points"`
	MaxPoints   float64  `json:"max_points"`
	Value       *float64 `json:"value,omitempty"`
	DataMissing bool     `json:"data_missing,omitempty"`
	Detail      string   `json:"detail"`
}

// ScoreResult is the full output of a composite evaluation.
type ScoreResult struct {
	Symbol            string        `json:"symbol,omitempty"`
	QualityScore      float64       `json:"quality_score"`
	TimingScore       float64       `json:"timing_score"`
	FinalScore        float64       `json:"final_score"`
	Rating            Rating        `json:"rating"`
	AppliedVetos      []string      `json:"applied_vetos"`
	Breakdown         []MetricScore `json:"breakdown"`
	Commentary        []string      `json:"commentary,omitempty"`
	Benchmark         string        `json:"benchmark"`
	BenchmarkFallback bool          `json:"benchmark_fallback,omitempty"`
}
