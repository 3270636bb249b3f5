package repository

import (
	"context"
	"time"

	"EquityPulse/internal/domain/models"
)

// MarketStream is a live quote feed. Connect and Subscribe are
// separate so a reconnect can resubscribe without redialing logic in
// the caller.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher hands quotes to the streaming backend.
type Publisher interface {
	Publish(ctx context.Context, q *models.Quote) error
	PublishBatch(ctx context.Context, quotes []*models.Quote) error
	Close() error
}

// SignalPublisher emits finished analysis signals for downstream
// consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// Storage persists quotes. Init must be idempotent; it runs on every
// start.
type Storage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, q *models.Quote) error
	StoreBatch(ctx context.Context, quotes []*models.Quote) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Quote, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the domain-facing metrics contract. Implementations live
// at the edge so core packages never import a metrics library.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSentimentTier(tier string)
	RecordSentimentCache(outcome string)
	RecordEvaluation(rating string)
	RecordVeto(name string)
}
