package ratelimit

import (
	"sync"
	"time"
)

const (
	// maxBuckets bounds memory under churny client populations; idle
	// buckets are pruned once the map passes this size.
	maxBuckets = 8192
	idleEvict  = 10 * time.Minute
)

// bucket refills continuously at refillRate tokens per second, capped
// at capacity.
type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64
	last       time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

// Limiter keeps one token bucket per key. Keys are usually
// "client:endpoint" so limits apply per caller per operation.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*bucket
}

func New() *Limiter {
	return &Limiter{m: make(map[string]*bucket)}
}

// Allow consumes one token for key. A key seen for the first time gets
// a full bucket with the given capacity and refill rate; the
// parameters are fixed at creation.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= maxBuckets {
			l.prune(now)
		}
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}

	b.refill(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// prune drops buckets idle past idleEvict. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	for key, b := range l.m {
		if now.Sub(b.last) > idleEvict {
			delete(l.m, key)
		}
	}
}
