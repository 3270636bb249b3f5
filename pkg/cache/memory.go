package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entries written without an explicit TTL still age out eventually.
const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryEntry struct {
	value    interface{}
	expireAt time.Time
	touched  time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is an in-process Service with LRU eviction at a fixed
// entry cap and periodic sweeping of expired entries.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	maxSize int
	sweep   *time.Ticker
	done    chan struct{}
}

// NewMemoryCache builds a memory cache and starts its sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: cfg.MaxSize,
		sweep:   time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.sweeper()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	ttl := expiration
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	mc.entries[key] = &memoryEntry{
		value:    value,
		expireAt: now.Add(ttl),
		touched:  now,
	}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	now := time.Now()
	if e.expired(now) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.touched = now

	switch d := dest.(type) {
	case *string:
		s, ok := e.value.(string)
		if !ok {
			return fmt.Errorf("cache: value for %q is %T, not string", key, e.value)
		}
		*d = s
	case *interface{}:
		*d = e.value
	default:
		return fmt.Errorf("cache: unsupported dest type %T", dest)
	}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern drops everything. Per-pattern matching is a Redis
// capability; the memory tier is small enough that a full reset is an
// acceptable stand-in.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries = make(map[string]*memoryEntry)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	now := time.Now()
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok || e.expired(time.Now()) {
		now := time.Now()
		mc.entries[key] = &memoryEntry{
			value:    int64(1),
			expireAt: now.Add(defaultMemoryTTL),
			touched:  now,
		}
		return 1, nil
	}

	n, ok := e.value.(int64)
	if !ok {
		return 0, fmt.Errorf("cache: value for %q is %T, not int64", key, e.value)
	}
	n++
	e.value = n
	return n, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return false, nil
	}
	e.expireAt = time.Now().Add(expiration)
	return true, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

// MGet returns the present string values. Non-string entries are
// skipped to match the Redis backend, which only ever holds strings.
func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	now := time.Now()
	out := make(map[string]string)
	for _, key := range keys {
		e, ok := mc.entries[key]
		if !ok || e.expired(now) {
			continue
		}
		if s, ok := e.value.(string); ok {
			out[key] = s
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if e, ok := mc.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = &memoryEntry{
		value:    "locked",
		expireAt: now.Add(ttl),
		touched:  now,
	}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest removes the least recently touched entry. Callers hold mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range mc.entries {
		if oldestKey == "" || e.touched.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.touched
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *MemoryCache) sweeper() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.sweep.C:
		}

		now := time.Now()
		mc.mu.Lock()
		for key, e := range mc.entries {
			if e.expired(now) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweeper goroutine.
func (mc *MemoryCache) Close() error {
	mc.sweep.Stop()
	select {
	case <-mc.done:
	default:
		close(mc.done)
	}
	return nil
}
