package insider

import (
	"sort"
	"time"

	"EquityPulse/internal/domain/models"
)

// Default detection windows, in days.
const (
	DefaultWindowDays   = 14
	DefaultLookbackDays = 90
)

// clusterSellerFloor is the distinct-seller count inside one window that
// upgrades plain selling to a coordinated cluster.
const clusterSellerFloor = 3

// Score modifiers per signal kind. No activity stays at zero.
const (
	clusterModifier    = -8.0
	netSellingModifier = -4.0
	netBuyingModifier  = 6.0
)

// Option tunes a Detector, at construction or per Detect call.
type Option func(*Detector)

func WithWindowDays(days int) Option {
	return func(d *Detector) {
		if days > 0 {
			d.windowDays = days
		}
	}
}

func WithLookbackDays(days int) Option {
	return func(d *Detector) {
		if days > 0 {
			d.lookbackDays = days
		}
	}
}

// WithReferenceTime pins "now" for lookback filtering, used by replayed
// analyses and tests.
func WithReferenceTime(ref time.Time) Option {
	return func(d *Detector) {
		d.now = func() time.Time { return ref }
	}
}

// Detector scans discretionary insider trades for coordinated-selling
// patterns and net buy/sell pressure.
type Detector struct {
	windowDays   int
	lookbackDays int
	now          func() time.Time
}

func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		windowDays:   DefaultWindowDays,
		lookbackDays: DefaultLookbackDays,
		now:          time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect classifies the trading pattern in one symbol's filings. Plan
// sales, gifts, and anything outside the lookback are ignored. The
// cluster check runs first and takes precedence over net flow no matter
// which way the volumes lean.
func (d *Detector) Detect(trades []models.InsiderTrade, opts ...Option) models.InsiderSignal {
	cfg := *d
	for _, o := range opts {
		o(&cfg)
	}

	cutoff := cfg.now().AddDate(0, 0, -cfg.lookbackDays)
	eligible := make([]models.InsiderTrade, 0, len(trades))
	for _, tr := range trades {
		if !tr.IsDiscretionary || tr.TradeDate.Before(cutoff) {
			continue
		}
		eligible = append(eligible, tr)
	}
	if len(eligible) == 0 {
		return models.InsiderSignal{Kind: models.InsiderNoActivity}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].TradeDate.Before(eligible[j].TradeDate)
	})

	if sig, ok := findCluster(eligible, cfg.windowDays); ok {
		return sig
	}

	var bought, sold float64
	for _, tr := range eligible {
		switch tr.Direction {
		case models.DirectionBuy:
			bought += tr.ShareCount
		case models.DirectionSell:
			sold += tr.ShareCount
		}
	}
	switch {
	case sold > bought:
		return models.InsiderSignal{Kind: models.InsiderNetSelling, ScoreModifier: netSellingModifier, Evidence: eligible}
	case bought > sold:
		return models.InsiderSignal{Kind: models.InsiderNetBuying, ScoreModifier: netBuyingModifier, Evidence: eligible}
	default:
		return models.InsiderSignal{Kind: models.InsiderNoActivity}
	}
}

// findCluster slides a windowDays-wide window across the sorted timeline
// and reports the first one holding enough distinct selling executives.
// Two pointers over sorted timestamps keep this linear after the sort.
func findCluster(sorted []models.InsiderTrade, windowDays int) (models.InsiderSignal, bool) {
	span := time.Duration(windowDays) * 24 * time.Hour
	sellers := make(map[string]int)
	lo := 0
	for hi := range sorted {
		for sorted[hi].TradeDate.Sub(sorted[lo].TradeDate) > span {
			if sorted[lo].Direction == models.DirectionSell {
				id := sorted[lo].ExecutiveID
				sellers[id]--
				if sellers[id] == 0 {
					delete(sellers, id)
				}
			}
			lo++
		}
		if sorted[hi].Direction == models.DirectionSell {
			sellers[sorted[hi].ExecutiveID]++
		}
		if len(sellers) >= clusterSellerFloor {
			evidence := make([]models.InsiderTrade, hi-lo+1)
			copy(evidence, sorted[lo:hi+1])
			return models.InsiderSignal{
				Kind:          models.InsiderClusterSelling,
				ScoreModifier: clusterModifier,
				Evidence:      evidence,
				Window: &models.TradeWindow{
					From:            sorted[lo].TradeDate,
					To:              sorted[hi].TradeDate,
					DistinctSellers: len(sellers),
				},
			}, true
		}
	}
	return models.InsiderSignal{}, false
}
