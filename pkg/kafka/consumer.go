package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes messages from a single topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig is the assembled option set for a Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	DLQTopic        string

	WorkerCount int
	BufferSize  int

	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration

	MinBytes int
	MaxBytes int
}

// WithConsumerBrokers sets the bootstrap broker list.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID names the consumer group.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerAutoOffsetReset picks where a fresh group starts
// ("earliest" or "latest").
func WithConsumerAutoOffsetReset(autoOffsetReset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.AutoOffsetReset = autoOffsetReset
	}
}

// WithConsumerWorkers sets the worker pool size.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.WorkerCount = count
	}
}

// WithConsumerRetry configures retry attempts and the backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ routes exhausted messages to a dead letter topic.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch bounds how many bytes one fetch returns.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.MinBytes = minBytes
		c.MaxBytes = maxBytes
	}
}

// WithConsumerBufferSize sets the delivery channel capacity.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Consumer reads registered topics through a shared worker pool.
// Deliveries from the same partition are handled one at a time, so
// per-symbol ordering survives concurrent workers.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	inbox    chan *delivery
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.Mutex
	partMu   map[string]map[int]*sync.Mutex
	dlq      *kafka.Writer
	hook     ConsumerHook
}

type delivery struct {
	topic   string
	payload []byte
	raw     kafka.Message
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:         "default",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      10,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        10e3, // 10KB
		MaxBytes:        10e6, // 10MB
	}
}

// NewConsumer creates a Kafka consumer. Topics attach later via
// RegisterHandler; nothing is read until Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	c := &Consumer{
		cfg:      cfg,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		inbox:    make(chan *delivery, cfg.BufferSize),
		quit:     make(chan struct{}),
		partMu:   make(map[string]map[int]*sync.Mutex),
		hook:     NoopHook{},
	}

	consumerMetricsInit()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// WithConsumerHook installs lifecycle hooks around message handling.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler attaches a handler to its topic. The first handler
// for a topic wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, dup := c.handlers[topic]; dup {
		log.Printf("kafka consumer: duplicate handler for topic %s ignored", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start spawns the worker pool and one read loop per registered topic.
func (c *Consumer) Start() error {
	for topic := range c.handlers {
		c.readers[topic] = c.newReader(topic)
		log.Printf("kafka consumer: topic %s attached", topic)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.readLoop(topic, reader)
	}

	log.Printf("kafka consumer: running, topics=%d workers=%d", len(c.readers), c.cfg.WorkerCount)
	return nil
}

func (c *Consumer) newReader(topic string) *kafka.Reader {
	start := kafka.FirstOffset
	if c.cfg.AutoOffsetReset == "latest" {
		start = kafka.LastOffset
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		Topic:       topic,
		GroupID:     c.cfg.GroupID,
		MinBytes:    c.cfg.MinBytes,
		MaxBytes:    c.cfg.MaxBytes,
		StartOffset: start,
	})
}

// Stop shuts the consumer down, honoring the context deadline while
// waiting for in-flight work. Safe to call more than once.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		log.Printf("kafka consumer: draining")
		close(c.quit)
		close(c.inbox)
		stopErr = c.waitStopped(ctx)

		// Readers close after the loops exit so no read races a
		// closed reader.
		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("kafka consumer: close reader %s: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("kafka consumer: close dlq writer: %v", err)
			}
		}
		if stopErr == nil {
			log.Printf("kafka consumer: stopped")
		}
	})
	return stopErr
}

func (c *Consumer) waitStopped(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("consumer drain: %w", ctx.Err())
	}
}

func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		select {
		case <-c.quit:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("kafka consumer: read %s: %v", topic, err)
			}
			continue
		}

		if !c.enqueue(&delivery{topic: topic, payload: msg.Value, raw: msg}) {
			return
		}
	}
}

// enqueue hands a delivery to the worker pool. Instead of dropping on
// a full channel it backs off, briefly sleeping once the queue passes
// 80% so readers slow down before workers fall behind. Returns false
// when the consumer is stopping.
func (c *Consumer) enqueue(d *delivery) bool {
	for {
		select {
		case c.inbox <- d:
			consumerQueueDepth.WithLabelValues(d.topic).Set(float64(len(c.inbox)))
			consumerQueueFullness.WithLabelValues(d.topic).Set(float64(len(c.inbox)) / float64(cap(c.inbox)))
			return true
		case <-c.quit:
			return false
		default:
			full := float64(len(c.inbox)) / float64(cap(c.inbox))
			consumerQueueFullness.WithLabelValues(d.topic).Set(full)
			if full > 0.8 {
				time.Sleep(10 * time.Millisecond)
			} else {
				runtime.Gosched()
			}
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for d := range c.inbox {
		handler, ok := c.handlers[d.topic]
		if !ok {
			continue
		}
		c.process(handler, d)
	}
}

// process runs one delivery through the handler with retries, hooks,
// and DLQ publication. Panics are contained per message.
func (c *Consumer) process(handler MessageHandler, d *delivery) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("kafka consumer: handler panic on %s: %v", d.topic, r)
		}
		consumerHandleLatency.WithLabelValues(d.topic).Observe(time.Since(start).Seconds())
	}()

	// Max in-flight of one per (topic, partition).
	pl := c.partitionLock(d.topic, d.raw.Partition)
	pl.Lock()
	defer pl.Unlock()

	var err error
	attempts := 0
	for {
		attempts++
		hctx, hmsg, hdata, berr := c.hook.BeforeHandle(context.Background(), d.topic, d.raw, d.payload)
		if berr != nil {
			err = berr
			break
		}

		err = handler.Handle(hctx, hdata)
		c.hook.AfterHandle(hctx, d.topic, hmsg, hdata, err)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}
		c.hook.OnError(hctx, d.topic, hmsg, hdata, err)

		select {
		case <-time.After(jitterBackoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.quit:
			return
		}
	}

	if err != nil {
		c.hook.OnError(context.Background(), d.topic, d.raw, d.payload, err)
		log.Printf("kafka consumer: giving up on %s after %d attempts: %v", d.topic, attempts, err)
		c.deadLetter(d)
	}

	// Commit on success, or after DLQ handoff so a poison message
	// cannot wedge the partition.
	if err == nil || c.dlq != nil {
		if reader := c.readers[d.topic]; reader != nil {
			_ = c.commitWithRetry(reader, d.raw, 3)
		}
	}
}

func (c *Consumer) deadLetter(d *delivery) {
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return
	}
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Value:   d.payload,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(d.topic)}},
	})
	if err != nil {
		log.Printf("kafka consumer: dlq write to %s: %v", c.cfg.DLQTopic, err)
	}
}

// commitWithRetry commits a single offset with bounded retries. An
// uncommitted offset only costs a redelivery, so failures are logged
// and swallowed by the caller.
func (c *Consumer) commitWithRetry(reader *kafka.Reader, km kafka.Message, max int) error {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-time.After(jitterBackoff(50*time.Millisecond, 500*time.Millisecond, attempt)):
		case <-c.quit:
			return err
		}
	}
	log.Printf("kafka consumer: commit failed after %d attempts: %v", max, err)
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.partMu[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partMu[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

// jitterBackoff doubles from min up to max and shaves off up to half
// so retrying consumers spread out.
func jitterBackoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d - time.Duration(rand.Int63n(int64(d)/2))
}

var (
	consumerMetricsOnce   sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerQueueFullness *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

func consumerMetricsInit() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "equitypulse_kafka_consumer_queue_depth", Help: "Deliveries waiting for a worker"},
			[]string{"topic"},
		)
		consumerQueueFullness = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "equitypulse_kafka_consumer_queue_fullness", Help: "Inbox fill ratio"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "equitypulse_kafka_consumer_handle_seconds", Help: "Per-message handler latency"},
			[]string{"topic"},
		)
	})
}
