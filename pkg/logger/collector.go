package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Publisher delivers aggregated log batches somewhere durable.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// CollectionConfig tunes aggregation.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush cadence
	CountThreshold int           // distinct entries that force a flush
	Topic          string        // message type for published batches
	Publisher      Publisher
}

// AggregatedLogEntry is one deduplicated log line with its occurrence
// count and time span.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector deduplicates log entries by content hash and flushes
// them in batches, so a failure repeating thousands of times arrives
// as one counted entry.
type LogCollector struct {
	config  *CollectionConfig
	entries map[string]*AggregatedLogEntry
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	ctx, cancel := context.WithCancel(context.Background())

	c := &LogCollector{
		config:  config,
		entries: make(map[string]*AggregatedLogEntry),
		ctx:     ctx,
		cancel:  cancel,
	}

	c.wg.Add(1)
	go c.flushLoop()

	return c
}

// AddLog records one occurrence of a log line.
func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		entry.Count++
		entry.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	if c.config.CountThreshold > 0 && len(c.entries) >= c.config.CountThreshold {
		c.flushLocked()
	}
}

// Close flushes remaining entries and stops the collector.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *LogCollector) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.ctx.Done():
			c.flush()
			return
		}
	}
}

func (c *LogCollector) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

// flushLocked snapshots and resets the entry map, then publishes the
// batch off the lock. Callers hold c.mu.
func (c *LogCollector) flushLocked() {
	if len(c.entries) == 0 {
		return
	}

	batch := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		batch = append(batch, *entry)
	}
	c.entries = make(map[string]*AggregatedLogEntry)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// The collector cannot log through Logger without feeding
		// itself, so failures go to the zerolog global.
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			zlog.Error().Err(err).Msg("aggregated log publish failed")
		}
	}()
}

func entryKey(level, message string, fields map[string]interface{}, caller string) string {
	data := struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
		Caller  string                 `json:"caller"`
	}{level, message, fields, caller}

	jsonData, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha256.Sum256(jsonData))
}
