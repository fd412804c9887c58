// Package cachemanager provides a typed cache over patrickmn/go-cache and a
// read-through wrapper used by the kitty query service.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key-value cache with per-entry TTL.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
}

// Stats counts lookups since creation.
type Stats struct {
	Hits   uint64
	Misses uint64
	Items  int
}
