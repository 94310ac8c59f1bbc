package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache wraps a Manager with a load function consulted on miss.
// The loader wires its Fetcher in as fn so repeated loads of the same
// resolved resource location skip the external fetch within the TTL.
type ReadThroughCache[K ~string, V any] struct {
	cache Manager[K, V]
	fn    func(ctx context.Context, key K) (V, error)
	ttl   time.Duration
}

// NewReadThroughCache builds a read-through wrapper around cache.
func NewReadThroughCache[K ~string, V any](
	cache Manager[K, V],
	fn func(ctx context.Context, key K) (V, error),
	ttl time.Duration,
) *ReadThroughCache[K, V] {
	return &ReadThroughCache[K, V]{
		cache: cache,
		fn:    fn,
		ttl:   ttl,
	}
}

// Get returns the cached value for key, loading and caching it on miss.
// Load errors are returned as-is and nothing is cached for the key.
func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.fn(ctx, key)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, r.ttl)
	return value, nil
}
