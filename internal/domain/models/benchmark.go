package models

// BenchmarkProfile holds the sector-relative thresholds the composite scorer
// interpolates against. Profiles are immutable once the catalog is loaded;
// Resolve hands out value copies.
type BenchmarkProfile struct {
	Key            string  `yaml:"key" json:"key"`
	PEGFair        float64 `yaml:"peg_fair" json:"peg_fair"`
	FCFYieldStrong float64 `yaml:"fcf_yield_strong" json:"fcf_yield_strong"`
	ROEStrong      float64 `yaml:"roe_strong" json:"roe_strong"`
	MarginHealthy  float64 `yaml:"margin_healthy" json:"margin_healthy"`
	DebtSafe       float64 `yaml:"debt_safe" json:"debt_safe"`
	GrowthStrong   float64 `yaml:"growth_strong" json:"growth_strong"`
	BetaSafe       float64 `yaml:"beta_safe" json:"beta_safe"`
	// Fallback is set on the returned copy when an unmapped sector label
	// resolved to the Market default.
	Fallback bool `yaml:"-" json:"fallback,omitempty"`
}
