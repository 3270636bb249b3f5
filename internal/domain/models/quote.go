package models

import "time"

// Quote is a single streamed price tick. Field tags mirror the upstream
// wire format so the message survives Kafka round-trips unchanged.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix seconds
	Price     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// Bar is one daily OHLCV row as persisted in ClickHouse.
type Bar struct {
	Day    time.Time `json:"day"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
