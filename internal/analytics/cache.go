package analytics

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("analytics cache miss")

// Cache stores serialized analytics results. Implementations may drop
// entries at any time.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(context.Context, string, any) error { return ErrCacheMiss }

// Set discards the value.
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }
