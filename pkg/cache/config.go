package cache

import "time"

// RedisConfig carries connection settings for the Redis backend.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// MemoryConfig carries settings for the in-process backend.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// LayeredConfig carries settings for the two-level cache.
type LayeredConfig struct {
	MemoryMaxSize int
	BackfillTTL   time.Duration
}

// RedisOption adjusts RedisConfig.
type RedisOption func(*RedisConfig)

// WithRedisHost sets the server host.
func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

// WithRedisPort sets the server port.
func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

// WithRedisPassword sets the auth password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

// WithRedisDB selects the logical database.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

// WithRedisPool sizes the connection pool.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix namespaces every key written through the client.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption adjusts MemoryConfig.
type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize caps the number of resident entries.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

// WithMemoryCleanup sets how often expired entries are swept.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// LayeredOption adjusts LayeredConfig.
type LayeredOption func(*LayeredConfig)

// WithLayeredMemorySize caps the L1 entry count.
func WithLayeredMemorySize(size int) LayeredOption {
	return func(c *LayeredConfig) { c.MemoryMaxSize = size }
}

// WithLayeredBackfillTTL sets how long an L2 hit stays resident in L1.
func WithLayeredBackfillTTL(ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) { c.BackfillTTL = ttl }
}
