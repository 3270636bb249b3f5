package scoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"EquityPulse/internal/domain/models"
)

// MarketKey is the catalog entry every unmapped sector label falls back to.
const MarketKey = "market"

// Resolver maps sector labels onto benchmark threshold profiles. The
// catalog is immutable after construction and Resolve hands out value
// copies, so callers can never corrupt a loaded profile.
type Resolver struct {
	profiles map[string]models.BenchmarkProfile
	aliases  map[string]string
}

func NewResolver() *Resolver {
	r := &Resolver{
		profiles: make(map[string]models.BenchmarkProfile, len(builtinProfiles)),
		aliases:  builtinAliases,
	}
	for _, p := range builtinProfiles {
		r.profiles[p.Key] = p
	}
	return r
}

// LoadFile merges profile overrides from a YAML catalog. Entries replace
// builtin profiles with the same key; new keys become additional themes.
func (r *Resolver) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read benchmark catalog: %w", err)
	}
	var doc struct {
		Profiles []models.BenchmarkProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse benchmark catalog: %w", err)
	}
	for _, p := range doc.Profiles {
		key := normalizeKey(p.Key)
		if key == "" {
			return fmt.Errorf("benchmark catalog: profile with empty key")
		}
		p.Key = key
		p.Fallback = false
		r.profiles[key] = p
	}
	return nil
}

// Resolve returns the profile for a sector label, insensitive to case
// and surrounding whitespace. Unknown or empty labels resolve to the
// market profile with Fallback set on the returned copy. Resolve never
// fails.
func (r *Resolver) Resolve(sector string) models.BenchmarkProfile {
	key := normalizeKey(sector)
	if p, ok := r.profiles[key]; ok {
		return p
	}
	if canon, ok := r.aliases[key]; ok {
		if p, ok := r.profiles[canon]; ok {
			return p
		}
	}
	p := r.profiles[MarketKey]
	p.Fallback = true
	return p
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// builtinProfiles is the curated theme table. Thresholds are sector
// medians rounded to usable bands, not point estimates.
var builtinProfiles = []models.BenchmarkProfile{
	{Key: MarketKey, PEGFair: 1.8, FCFYieldStrong: 0.05, ROEStrong: 0.15, MarginHealthy: 0.10, DebtSafe: 2.5, GrowthStrong: 0.08, BetaSafe: 1.2},
	{Key: "technology", PEGFair: 2.2, FCFYieldStrong: 0.04, ROEStrong: 0.18, MarginHealthy: 0.15, DebtSafe: 2.0, GrowthStrong: 0.15, BetaSafe: 1.4},
	{Key: "financials", PEGFair: 1.4, FCFYieldStrong: 0.06, ROEStrong: 0.12, MarginHealthy: 0.20, DebtSafe: 3.5, GrowthStrong: 0.06, BetaSafe: 1.2},
	{Key: "healthcare", PEGFair: 2.0, FCFYieldStrong: 0.045, ROEStrong: 0.15, MarginHealthy: 0.12, DebtSafe: 2.5, GrowthStrong: 0.10, BetaSafe: 1.0},
	{Key: "energy", PEGFair: 1.4, FCFYieldStrong: 0.07, ROEStrong: 0.12, MarginHealthy: 0.08, DebtSafe: 2.0, GrowthStrong: 0.05, BetaSafe: 1.3},
	{Key: "utilities", PEGFair: 2.5, FCFYieldStrong: 0.04, ROEStrong: 0.10, MarginHealthy: 0.12, DebtSafe: 4.5, GrowthStrong: 0.04, BetaSafe: 0.7},
	{Key: "consumer_staples", PEGFair: 2.2, FCFYieldStrong: 0.045, ROEStrong: 0.18, MarginHealthy: 0.08, DebtSafe: 3.0, GrowthStrong: 0.05, BetaSafe: 0.8},
	{Key: "consumer_discretionary", PEGFair: 1.8, FCFYieldStrong: 0.05, ROEStrong: 0.15, MarginHealthy: 0.07, DebtSafe: 2.5, GrowthStrong: 0.10, BetaSafe: 1.3},
	{Key: "industrials", PEGFair: 1.7, FCFYieldStrong: 0.05, ROEStrong: 0.14, MarginHealthy: 0.09, DebtSafe: 2.5, GrowthStrong: 0.07, BetaSafe: 1.1},
	{Key: "materials", PEGFair: 1.5, FCFYieldStrong: 0.06, ROEStrong: 0.12, MarginHealthy: 0.10, DebtSafe: 2.2, GrowthStrong: 0.06, BetaSafe: 1.2},
	{Key: "real_estate", PEGFair: 2.0, FCFYieldStrong: 0.05, ROEStrong: 0.08, MarginHealthy: 0.15, DebtSafe: 5.5, GrowthStrong: 0.05, BetaSafe: 0.9},
	{Key: "communication_services", PEGFair: 1.9, FCFYieldStrong: 0.05, ROEStrong: 0.14, MarginHealthy: 0.12, DebtSafe: 2.8, GrowthStrong: 0.09, BetaSafe: 1.1},
}

// builtinAliases maps the sector spellings upstream providers actually
// emit onto canonical catalog keys. Keys here are pre-normalized.
var builtinAliases = map[string]string{
	"tech":                   "technology",
	"information_technology": "technology",
	"it":                     "technology",
	"software":               "technology",
	"finance":                "financials",
	"financial":              "financials",
	"financial_services":     "financials",
	"banks":                  "financials",
	"health":                 "healthcare",
	"health_care":            "healthcare",
	"pharma":                 "healthcare",
	"oil_&_gas":              "energy",
	"oil_and_gas":            "energy",
	"staples":                "consumer_staples",
	"consumer_defensive":     "consumer_staples",
	"discretionary":          "consumer_discretionary",
	"consumer_cyclical":      "consumer_discretionary",
	"industrial":             "industrials",
	"basic_materials":        "materials",
	"reit":                   "real_estate",
	"reits":                  "real_estate",
	"realestate":             "real_estate",
	"telecom":                "communication_services",
	"communications":         "communication_services",
	"communication":          "communication_services",
	"default":                MarketKey,
	"broad_market":           MarketKey,
}
