// Package cache defines the key-value cache used for resolved secrets and
// connection state.
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations the gateway relies on.
type Client interface {
	// Get returns nil, nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero ttl means the client's default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// DeletePattern removes all keys matching a glob pattern and returns how many.
	DeletePattern(ctx context.Context, pattern string) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
