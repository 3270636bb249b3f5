package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	"EquityPulse/internal/service/ratelimit"
)

// Proc is the downstream the pipeline feeds.
type Proc interface {
	Process(ctx context.Context, q *models.Quote) error
}

// RealtimePipeline sits between the quote stream and the backends. It
// validates each quote, throttles per symbol, applies an optional
// transform, and parks quotes in a bounded buffer when downstream
// rejects them. A background flusher retries the buffer with backoff.
type RealtimePipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	limiter   *ratelimit.Limiter
	transform func(*models.Quote) *models.Quote

	maxRPS  int
	bufSize int
	buf     chan *models.Quote

	mu      sync.Mutex
	started bool
	stop    chan struct{}
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS caps quotes per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize bounds how many quotes can wait for a downstream
// retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform installs a hook that rewrites each quote before
// validation of the result and forwarding.
func WithTransform(fn func(*models.Quote) *models.Quote) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxRPS:  20,
		bufSize: 1000,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.buf = make(chan *models.Quote, p.bufSize)
	return p
}

// Start launches the buffer flusher. The pipeline is single-use: once
// stopped it cannot be started again.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flushLoop(ctx)
}

func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stop)
}

func (p *RealtimePipeline) flushLoop(ctx context.Context) {
	backoff := 50 * time.Millisecond
	for {
		select {
		case <-p.stop:
			return
		case q := <-p.buf:
			if q == nil {
				continue
			}
			if err := p.proc.Process(ctx, q); err != nil {
				p.metrics.RecordError("pipeline_flush")
				if backoff < 2*time.Second {
					backoff *= 2
				}
				// Requeue while there is room; an always-failing
				// downstream eventually sheds the oldest quotes.
				select {
				case p.buf <- q:
				default:
					p.metrics.RecordError("pipeline_buffer_drop")
				}
				select {
				case <-p.stop:
					return
				case <-time.After(backoff):
				}
				continue
			}
			backoff = 50 * time.Millisecond
		}
	}
}

// Process validates, throttles, and forwards one quote. A downstream
// failure parks the quote for the flusher and surfaces the error.
// Throttled quotes are dropped without error; the stream must not
// stall behind a noisy symbol.
func (p *RealtimePipeline) Process(ctx context.Context, q *models.Quote) error {
	start := time.Now()

	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		q = p.transform(q)
		if err := validateQuote(q); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if p.maxRPS > 0 && !p.limiter.Allow(q.Symbol, float64(p.maxRPS), float64(p.maxRPS)) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, q); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.buf <- q:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}

	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateQuote(q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if q.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if q.Price < 0 || q.Volume < 0 {
		return fmt.Errorf("negative price/volume")
	}
	return nil
}
