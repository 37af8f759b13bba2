// Package store implements the proxy's generic TTL-bounded persistence
// layer (C1) and its background reaper (C2). A Store[T] maps string
// keys to a typed record with an optional per-entry time-to-live; three
// backends share the same contract so the rest of the proxy never knows
// which one is wired in.
package store

import (
	"context"
	"time"
)

// Store is a generic TTL-bounded key/value store. T must be JSON
// serializable; all three backends round-trip values through their
// canonical JSON form so behavior is identical regardless of backend.
type Store[T any] interface {
	// Set writes value under key. If ttl is positive, the entry must
	// become unreadable after that many seconds; ttl <= 0 means no
	// expiry.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Get reads key. The second return is false if the key is absent
	// or has expired.
	Get(ctx context.Context, key string) (T, bool, error)

	// Delete idempotently removes key.
	Delete(ctx context.Context, key string) error
}

// Reapable is implemented by backends that need a periodic sweep to
// evict TTL-expired entries (the in-memory backend; Redis and the
// remote cache expire entries natively and do not implement this).
type Reapable interface {
	// ReapExpired removes entries whose expiry has passed and returns
	// the count removed.
	ReapExpired(now time.Time) int
}
