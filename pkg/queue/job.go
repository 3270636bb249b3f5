package queue

import "context"

// Job consumes one message type from the queue.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job handles.
	Type() string

	// Handle processes one payload.
	Handle(ctx context.Context, payload interface{}) error
}
