package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with a small in-process tier. Reads are
// served from memory when possible; writes go through to Redis, which
// stays the source of truth. Coordination primitives and batch ops
// bypass L1 entirely because they only make sense against shared
// state.
type LayeredCache struct {
	local       *MemoryCache
	shared      *RedisCache
	backfillTTL time.Duration
}

// NewLayeredCache wraps an existing Redis client with an L1 tier.
func NewLayeredCache(shared *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		BackfillTTL:   time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		local:       NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		shared:      shared,
		backfillTTL: cfg.BackfillTTL,
	}
}

// Set writes through to Redis before updating the local tier. A failed
// Redis write leaves L1 untouched so the tiers cannot disagree.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.shared.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.local.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.shared.Get(ctx, key, dest); err != nil {
		return err
	}

	// Backfill with a short TTL. Redis owns the real expiry, so the
	// local copy must not outlive it by much.
	if s, ok := dest.(*string); ok {
		_ = lc.local.Set(ctx, key, *s, lc.backfillTTL)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.shared.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.local.DeleteByPattern(ctx, pattern)
	return lc.shared.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.shared.Exists(ctx, keys...)
}

func (lc *LayeredCache) Increment(ctx context.Context, key string) (int64, error) {
	return lc.shared.Increment(ctx, key)
}

func (lc *LayeredCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	return lc.shared.Expire(ctx, key, expiration)
}

func (lc *LayeredCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	return lc.shared.MSet(ctx, values, expiration)
}

func (lc *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	return lc.shared.MGet(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.shared.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.shared.Unlock(ctx, key)
}

// Close shuts down both tiers.
func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.shared.Close()
}
