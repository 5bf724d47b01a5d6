package cache

import (
	"context"
	"time"
)

// Cache is a TTL byte cache. Implementations are constructed and injected
// explicitly; nothing in this codebase caches through package-level state.
type Cache interface {
	// Get returns the cached value and whether the key was present and
	// unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
