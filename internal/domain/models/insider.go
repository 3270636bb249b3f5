package models

import "time"

// TradeDirection marks an insider filing as an open-market buy or sell.
type TradeDirection string

const (
	DirectionBuy  TradeDirection = "buy"
	DirectionSell TradeDirection = "sell"
)

// InsiderTrade is a single reported executive transaction.
type InsiderTrade struct {
	ExecutiveID string         `json:"executive_id"`
	TradeDate   time.Time      `json:"trade_date"`
	Direction   TradeDirection `json:"direction"`
	// IsDiscretionary is false for 10b5-1 plan sales and gifts, which carry
	// no information content and are excluded from signal detection.
	IsDiscretionary bool    `json:"is_discretionary"`
	ShareCount      float64 `json:"share_count"`
}

// InsiderKind classifies the detected trading pattern.
type InsiderKind string

const (
	InsiderClusterSelling InsiderKind = "cluster_selling"
	InsiderNetSelling     InsiderKind = "net_selling"
	InsiderNetBuying      InsiderKind = "net_buying"
	InsiderNoActivity     InsiderKind = "no_activity"
)

// TradeWindow describes the sliding window that triggered a cluster.
type TradeWindow struct {
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	DistinctSellers int       `json:"distinct_sellers"`
}

// InsiderSignal is the outcome of insider pattern detection for one symbol.
type InsiderSignal struct {
	Kind          InsiderKind    `json:"kind"`
	ScoreModifier float64        `json:"score_modifier"`
	Evidence      []InsiderTrade `json:"evidence,omitempty"`
	Window        *TradeWindow   `json:"window,omitempty"`
}
