package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the producer-side surface exposed to use cases.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig tunes the consumer side.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the wire envelope stored in Redis.
type Message struct {
	ID        string
	Type      string
	Payload   interface{}
	Attempts  int
	Timestamp time.Time
}

// ParsePayload recovers a typed payload from whatever shape the
// envelope round-trip left it in. Payloads published in-process arrive
// as T or *T; payloads read back from Redis arrive as raw JSON or
// generic maps.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		var result T
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	case map[string]interface{}, []interface{}:
		jsonData, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("remarshal payload: %w", err)
		}
		var result T
		if err := json.Unmarshal(jsonData, &result); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
