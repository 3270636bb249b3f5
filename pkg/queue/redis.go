package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"EquityPulse/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// QueueMode selects which halves of the queue a process runs.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

const (
	defaultKeyPrefix = "equitypulse:queue"

	// popWait is how long a worker blocks on an empty queue before
	// rechecking its stop channels.
	popWait = time.Second

	// promoteTick is the retry sweep interval; promoteBatch caps how
	// many due retries one sweep moves back.
	promoteTick  = 5 * time.Second
	promoteBatch = 256
)

// RedisQueue is a Redis-backed job queue. Pending messages live in a
// list, delayed retries in a sorted set scored by due time, and
// exhausted messages in a dead letter list.
type RedisQueue struct {
	logger *logger.Logger
	config *QueueConfig
	client *redis.Client
	mode   QueueMode

	mu        sync.RWMutex
	jobs      map[string]Job
	isRunning bool

	wg     sync.WaitGroup
	stopCh chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	keyPrefix string
	queueKey  string
	retryKey  string
	dlqKey    string
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix overrides the Redis key namespace.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

func normalizeQueueConfig(c *QueueConfig) *QueueConfig {
	if c == nil {
		c = &QueueConfig{}
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	return c
}

// NewRedisQueue creates a queue in the given mode. Consumer modes
// need RegisterJob calls and an explicit Start.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    normalizeQueueConfig(config),
		client:    client,
		mode:      mode,
		jobs:      make(map[string]Job),
		stopCh:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(rq)
	}

	rq.queueKey = rq.keyPrefix + ":messages"
	rq.retryKey = rq.keyPrefix + ":retry"
	rq.dlqKey = rq.keyPrefix + ":dlq"
	return rq
}

// NewRedisPublisher creates and starts a producer-only queue.
func NewRedisPublisher(lgr *logger.Logger, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := NewRedisQueue(lgr, &QueueConfig{}, client, ModeProducerOnly, opts...)
	if err := q.Start(); err != nil {
		lgr.Error("redis publisher start failed", logger.Error(err))
	}
	return q
}

// NewRedisConsumer creates a consumer-only queue with its jobs
// attached. The caller starts it.
func NewRedisConsumer(lgr *logger.Logger, config *QueueConfig, client *redis.Client, jobs []Job, opts ...RedisQueueOption) *RedisQueue {
	q := NewRedisQueue(lgr, config, client, ModeConsumerOnly, opts...)
	if len(jobs) > 0 {
		q.RegisterJobs(jobs)
	}
	return q
}

// RegisterJobs registers multiple jobs.
func (r *RedisQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		r.RegisterJob(job)
	}
}

// RegisterJob registers one job keyed by its message type. In
// producer-only mode registration is a no-op; producers never
// dispatch.
func (r *RedisQueue) RegisterJob(job Job) {
	if r.mode == ModeProducerOnly {
		r.logger.Warn("producer-only queue ignores jobs",
			logger.String("job", job.Name()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.jobs[job.Type()]; dup {
		r.logger.Warn("duplicate queue job ignored", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("queue job attached",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// flipRunning moves isRunning to the given state and reports whether
// this call performed the transition. Exactly one of several
// concurrent callers wins.
func (r *RedisQueue) flipRunning(to bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning == to {
		return false
	}
	r.isRunning = to
	return true
}

// Start verifies the Redis connection and, in consumer modes, spawns
// the worker pool plus the retry promoter.
func (r *RedisQueue) Start() error {
	if !r.flipRunning(true) {
		return fmt.Errorf("queue is already started")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.flipRunning(false)
		return fmt.Errorf("queue redis ping: %w", err)
	}

	if r.mode == ModeProducerOnly {
		r.logger.Info("redis publisher ready",
			logger.String("addr", r.client.Options().Addr))
		return nil
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryLoop()

	r.logger.Info("redis queue running",
		logger.String("mode", r.modeString()),
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop drains the workers, honoring the context deadline. Safe to
// call more than once.
func (r *RedisQueue) Stop(ctx context.Context) error {
	if !r.flipRunning(false) {
		return nil
	}
	r.logger.Info("redis queue draining")
	r.cancel()
	if r.mode != ModeProducerOnly {
		close(r.stopCh)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("redis queue drained")
		return nil
	case <-ctx.Done():
		r.logger.Warn("queue drain deadline exceeded", logger.Error(ctx.Err()))
		return fmt.Errorf("queue drain: %w", ctx.Err())
	}
}

// Enqueue pushes a message onto the queue.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isRunning {
		return fmt.Errorf("queue is not started")
	}
	// Consumers publishing to themselves must have a matching job, or
	// the message would bounce between queue and DLQ unhandled.
	if r.mode != ModeProducerOnly {
		if _, ok := r.jobs[msgType]; !ok {
			return fmt.Errorf("no job handles message type %s", msgType)
		}
	}

	data, err := json.Marshal(Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey, data).Err(); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}
	return nil
}

// PublishMessage implements QueueService.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

// stopping reports whether shutdown has begun, without blocking.
func (r *RedisQueue) stopping() bool {
	select {
	case <-r.stopCh:
		return true
	case <-r.ctx.Done():
		return true
	default:
		return false
	}
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Info("queue worker up", logger.Int("worker", id))
	defer r.logger.Info("queue worker down", logger.Int("worker", id))

	for !r.stopping() {
		if msg, ok := r.take(); ok {
			r.dispatch(msg)
		}
	}
}

// take blocks up to popWait on the queue head. A false return means
// the queue was empty or Redis misbehaved; the worker loop decides
// whether to keep going.
func (r *RedisQueue) take() (Message, bool) {
	ctx, cancel := context.WithTimeout(r.ctx, popWait)
	defer cancel()

	res, err := r.client.BRPop(ctx, popWait, r.queueKey).Result()
	switch {
	case err == nil:
	case errors.Is(err, redis.Nil), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Message{}, false
	default:
		r.logger.Error("queue pop failed", logger.Error(err))
		select {
		case <-r.stopCh:
		case <-r.ctx.Done():
		case <-time.After(popWait):
		}
		return Message{}, false
	}

	// BRPop returns [key, value].
	if len(res) < 2 {
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		r.logger.Error("queue message decode failed", logger.Error(err))
		return Message{}, false
	}
	return msg, true
}

func (r *RedisQueue) dispatch(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("message type has no job",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, normalizePayload(r.logger, msg.Payload))
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}
	r.retryOrBury(msg, job, err)
}

// normalizePayload turns the generic map an envelope decode produces
// back into raw JSON so jobs can unmarshal their own types.
func normalizePayload(lgr *logger.Logger, payload interface{}) interface{} {
	m, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}
	raw, err := json.Marshal(m)
	if err != nil {
		lgr.Error("payload reencode failed", logger.Error(err))
		return payload
	}
	return json.RawMessage(raw)
}

// retryOrBury schedules the next attempt, spacing retries further
// apart each time, or moves the message to the DLQ once attempts run
// out.
func (r *RedisQueue) retryOrBury(msg Message, job Job, err error) {
	r.logger.Error("queue job failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= r.config.RetryLimit {
		r.logger.Error("retries exhausted, burying message",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		r.bury(msg)
		return
	}

	msg.Attempts++
	dueAt := time.Now().Add(time.Duration(msg.Attempts) * r.config.RetryDelay)
	r.scheduleRetry(msg, dueAt)
	r.logger.Info("retry scheduled",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts),
		logger.String("due", dueAt.Format(time.RFC3339)))
}

func (r *RedisQueue) scheduleRetry(msg Message, dueAt time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("retry encode failed", logger.Error(err))
		return
	}
	z := redis.Z{Score: float64(dueAt.Unix()), Member: data}
	if err := r.client.ZAdd(context.Background(), r.retryKey, z).Err(); err != nil {
		r.logger.Error("retry schedule failed", logger.Error(err))
	}
}

func (r *RedisQueue) bury(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("dlq encode failed", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), r.dlqKey, data).Err(); err != nil {
		r.logger.Error("dlq push failed", logger.Error(err))
	}
}

// retryLoop periodically moves due retries back onto the queue.
func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()
	r.logger.Info("retry promoter up")
	defer r.logger.Info("retry promoter down")

	ticker := time.NewTicker(promoteTick)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.promoteDueRetries()
		}
	}
}

func (r *RedisQueue) promoteDueRetries() {
	due, err := r.client.ZRangeByScoreWithScores(r.ctx, r.retryKey, &redis.ZRangeBy{
		Min:   "0",
		Max:   strconv.FormatInt(time.Now().Unix(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.logger.Error("due retry scan failed", logger.Error(err))
		return
	}

	for _, z := range due {
		if r.stopping() {
			return
		}
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		// Remove and requeue atomically so a crash cannot duplicate
		// or lose the message.
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey, member)
		pipe.LPush(r.ctx, r.queueKey, member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("retry promote failed", logger.Error(err))
		}
	}
}

func (r *RedisQueue) modeString() string {
	switch r.mode {
	case ModeProducerOnly:
		return "producer-only"
	case ModeConsumerOnly:
		return "consumer-only"
	default:
		return "producer-consumer"
	}
}
