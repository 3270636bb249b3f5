package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one producer payload with its partitioning key.
type Message struct {
	Key   []byte
	Value interface{}
}

// Producer wraps a kafka-go writer.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1048576,
		BatchTimeout: 1 * time.Second,
	}
}

// NewProducer creates a Kafka producer. With HashByKey the writer
// hashes message keys, keeping one symbol on one partition.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}

	producerMetricsInit()

	return &Producer{
		comp: cfg.Compression,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     bal,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  parseCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
		},
	}, nil
}

// Publish sends one message to the topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch sends messages to the topic in one writer call.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	msgs, totalBytes, err := assemble(topic, messages)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, msgs...)
	recordPublish(topic, p.comp, totalBytes, len(messages), time.Since(start), err)
	return err
}

// assemble encodes payloads into wire messages, reporting the total
// uncompressed size for the bytes counter.
func assemble(topic string, messages []Message) ([]kafka.Message, int64, error) {
	msgs := make([]kafka.Message, 0, len(messages))
	var total int64
	now := time.Now()
	for _, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: now})
		total += int64(len(v))
	}
	return msgs, total, nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// encodeValue passes []byte and string through, everything else is
// JSON marshaled.
func encodeValue(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return v, nil
	}
}

var compressionCodecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// parseCompression falls back to gzip for unknown codec names.
func parseCompression(s string) kafka.Compression {
	if c, ok := compressionCodecs[s]; ok {
		return c
	}
	return kafka.Gzip
}

var (
	producerMetricsOnce sync.Once
	producerMsgsTotal   *prometheus.CounterVec
	producerErrsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
)

func producerMetricsInit() {
	producerMetricsOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitypulse_kafka_producer_messages_total",
				Help: "Messages published, by topic and outcome",
			},
			[]string{"topic", "compression", "result"},
		)
		producerErrsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitypulse_kafka_producer_errors_total",
				Help: "Failed writer calls",
			},
			[]string{"topic"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "equitypulse_kafka_producer_bytes_total",
				Help: "Uncompressed payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "equitypulse_kafka_producer_publish_seconds",
				Help:    "WriteMessages latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

// recordPublish is a no-op until producerMetricsInit has run.
func recordPublish(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if producerMsgsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		producerErrsTotal.WithLabelValues(topic).Inc()
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}
