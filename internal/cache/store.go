package cache

import (
	"context"
	"time"
)

// Store is a key-value store with TTL and pattern-based bulk eviction.
// Patterns use glob syntax ("flights:list:*").
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	EvictMatching(ctx context.Context, pattern string) (int, error)
	// Incr atomically adds one to the integer stored at key, starting from
	// zero, and returns the new value. The key does not expire.
	Incr(ctx context.Context, key string) (int64, error)
}
