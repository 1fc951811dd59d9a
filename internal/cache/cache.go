// Package cache holds the explicit, injected result caches used by the
// catalog planner and the wishlist sync. Entries carry their stored-at time
// so callers decide freshness; invalidation is always an explicit call.
package cache

import (
	"context"
	"time"
)

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Value    V         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Fresh reports whether the entry is younger than ttl at now. A non-positive
// ttl means entries are never fresh.
func (e Entry[V]) Fresh(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(e.StoredAt) < ttl
}

// Cache maps string keys to entries within one namespace.
type Cache[V any] interface {
	// Get returns the entry for key and whether it exists.
	Get(ctx context.Context, key string) (Entry[V], bool, error)

	// Set stores value under key stamped with the current time.
	Set(ctx context.Context, key string, value V) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error
}
