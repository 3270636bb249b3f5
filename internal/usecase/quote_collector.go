package usecase

import (
	"context"

	"EquityPulse/internal/domain/models"
	drepo "EquityPulse/internal/domain/repository"
	mid "EquityPulse/internal/middleware"
)

// QuoteCollector collects quotes from the market stream and processes them.
type QuoteCollector struct {
	stream  drepo.MarketStream
	proc    *QuoteProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewQuoteCollector creates a new QuoteCollector instance.
func NewQuoteCollector(stream drepo.MarketStream, proc *QuoteProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *QuoteCollector {
	return &QuoteCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.Quote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case q := <-qCh:
			if q == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, q)
			} else {
				_ = c.proc.Process(ctx, q)
			}
			c.metrics.RecordLastPrice(q.Symbol, q.Price)
		}
	}
}

func (c *QuoteCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying QuoteProcessor for lifecycle management.
func (c *QuoteCollector) Processor() *QuoteProcessor { return c.proc }

// Shutdown stops the pipeline and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
