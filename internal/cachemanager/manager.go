// Package cachemanager provides TTL caches keyed by string-like identifiers.
package cachemanager

import (
	"context"
	"time"
)

type CacheManager[K ~string, V any] interface {
	// Add stores value only if key is absent or expired. Reports whether it stored.
	Add(ctx context.Context, key K, value V, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}
