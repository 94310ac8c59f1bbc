// Package cachemanager provides a generic TTL cache and a read-through
// wrapper, used by the loader to avoid refetching resource payloads.
package cachemanager

import (
	"context"
	"time"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Manager is a generic TTL cache.
type Manager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
