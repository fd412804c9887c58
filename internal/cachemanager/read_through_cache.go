package cachemanager

import (
	"context"
	"sync"
	"time"
)

// ReadThroughCache serves values from cache and loads misses through fn.
// Errors from fn are returned as-is and never cached.
//
// A load that overlaps an Invalidate is returned to its caller but not
// cached: the value may predate the change that caused the invalidation.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool

	mu         sync.Mutex
	generation uint64 // bumped by every Invalidate
}

func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.shouldSkipCache {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.load(ctx, key, input, ttl)
}

// Invalidate drops keys so the next Get reloads them, and keeps any load
// already in flight from caching what it read.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	return r.cache.Delete(ctx, keys...)
}

func (r *ReadThroughCache[K, V, I]) load(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	r.mu.Lock()
	gen := r.generation
	r.mu.Unlock()

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation == gen {
		r.cache.Set(ctx, key, value, ttl)
	}
	return value, nil
}
