package kafka

import "time"

// ProducerConfig carries kafka-go writer settings.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

// ProducerOption adjusts ProducerConfig.
type ProducerOption func(*ProducerConfig)

// WithBrokers sets the broker addresses.
func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression picks the message codec (gzip, snappy, lz4, zstd).
func WithCompression(compression string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = compression }
}

// WithRequiredAcks sets acknowledgement strictness (-1 waits for all
// replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

// WithMaxAttempts caps writer-side delivery retries.
func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { c.MaxAttempts = n }
}

// WithBatchSize sets the message count that triggers a batch flush.
func WithBatchSize(size int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchSize = size }
}

// WithBatchTimeout sets the max linger before a partial batch flushes.
func WithBatchTimeout(timeout time.Duration) ProducerOption {
	return func(c *ProducerConfig) { c.BatchTimeout = timeout }
}

// WithBatchBytes sets the byte budget that triggers a batch flush.
func WithBatchBytes(bytes int) ProducerOption {
	return func(c *ProducerConfig) { c.BatchBytes = bytes }
}

// WithTimeouts sets the writer's write and read timeouts.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync switches to fire-and-forget writes. Delivery errors are
// only visible through the writer's error logger.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

// WithHashByKey routes messages by key hash so one key always lands on
// one partition, preserving per-symbol ordering.
func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}
