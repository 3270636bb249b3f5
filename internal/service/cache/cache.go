package cache

import "time"

// BytesCache stores opaque bytes under string keys with a TTL. It is
// the only cache shape the analysis path depends on, so backends range
// from a process-local map to layered Redis.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
