package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the Redis-backed Service. Every key is namespaced
// under the configured prefix so several deployments can share one
// server.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 5,
		Prefix:       "equitypulse",
	}
}

// NewRedisCache connects to Redis and verifies the connection with a
// ping before returning.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	cfg := defaultRedisConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache redis ping: %w", err)
	}

	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// encode keeps strings as-is and JSON-encodes everything else, so a
// later Get into *string sees exactly what was written.
func encode(value interface{}) ([]byte, error) {
	if s, ok := value.(string); ok {
		return []byte(s), nil
	}
	return json.Marshal(value)
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.wrapKey(key), data, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if s, ok := dest.(*string); ok {
		*s = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Delete uses UNLINK so large values are reclaimed off the command
// path.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Unlink(ctx, c.wrapKeys(keys...)...).Err()
}

// DeleteByPattern walks matching keys with SCAN and unlinks them in
// batches. KEYS would block the server on a large keyspace.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	const batchSize = 512

	iter := c.client.Scan(ctx, 0, c.wrapKey(pattern), 0).Iterator()
	batch := make([]string, 0, batchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= batchSize {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

func (c *RedisCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := c.client.Exists(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) Increment(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, c.wrapKey(key)).Result()
}

func (c *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	return c.client.Expire(ctx, c.wrapKey(key), expiration).Result()
}

func (c *RedisCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	pipe := c.client.TxPipeline()
	for key, value := range values {
		data, err := encode(value)
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.wrapKey(key), data, expiration)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return make(map[string]string), nil
	}

	vals, err := c.client.MGet(ctx, c.wrapKeys(keys...)...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	for i, key := range keys {
		if s, ok := vals[i].(string); ok {
			out[key] = s
		}
	}
	return out, nil
}

// TryLock acquires key via SET NX. The TTL bounds how long a crashed
// holder can block others.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.wrapKey(key), "locked", ttl).Result()
}

func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.wrapKey(key)).Err()
}

func (c *RedisCache) wrapKey(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) wrapKeys(keys ...string) []string {
	wrapped := make([]string, len(keys))
	for i, key := range keys {
		wrapped[i] = c.wrapKey(key)
	}
	return wrapped
}
