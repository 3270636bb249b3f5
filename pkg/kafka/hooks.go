package kafka

import (
    "context"

    "github.com/segmentio/kafka-go"

    "EquityPulse/pkg/logger"
)

// ConsumerHook observes message handling. BeforeHandle may rewrite the
// context, message, or payload; returning an error skips the handler
// and routes the message through error processing (OnError, DLQ, and
// offset commit).
type ConsumerHook interface {
    BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
    AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
    OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is the default hook.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

// LoggingHook reports handler failures with their partition
// coordinates so a stuck offset can be located from logs alone.
type LoggingHook struct {
    Log *logger.Logger
}

func (h LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
    return ctx, km, data, nil
}

func (h LoggingHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (h LoggingHook) OnError(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
    if h.Log == nil {
        return
    }
    h.Log.Warn("kafka handler error",
        logger.String("topic", topic),
        logger.Int("partition", km.Partition),
        logger.Int64("offset", km.Offset),
        logger.Error(err),
    )
}
