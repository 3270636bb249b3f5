package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "EquityPulse/pkg/cache"
)

// ServiceCache adapts a pkg/cache Service to the BytesCache API. Values
// go through the service as strings, which both the Redis and layered
// backends round-trip unchanged.
type ServiceCache struct {
	svc pkgcache.Service
}

func NewServiceCache(svc pkgcache.Service) *ServiceCache {
	return &ServiceCache{svc: svc}
}

func (s *ServiceCache) GetBytes(key string) ([]byte, bool, error) {
	var v string
	if err := s.svc.Get(context.Background(), key, &v); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(v), true, nil
}

func (s *ServiceCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.svc.Set(context.Background(), key, string(value), ttl)
}

var _ BytesCache = (*ServiceCache)(nil)
