package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// Redis is a Cache stored as JSON strings under "<namespace>:<key>".
// Keys also get a Redis expiry so abandoned entries do not accumulate.
type Redis[V any] struct {
	client    redis.UniversalClient
	namespace string
	expiry    time.Duration
	now       func() time.Time
}

// NewRedis returns a cache in namespace. expiry <= 0 stores keys without a
// Redis TTL.
func NewRedis[V any](client redis.UniversalClient, namespace string, expiry time.Duration) *Redis[V] {
	return &Redis[V]{
		client:    client,
		namespace: namespace,
		expiry:    expiry,
		now:       time.Now,
	}
}

func (r *Redis[V]) key(k string) string {
	return r.namespace + ":" + k
}

// Get returns the entry for key.
func (r *Redis[V]) Get(ctx context.Context, key string) (Entry[V], bool, error) {
	var e Entry[V]
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return e, true, nil
}

// Set stores value under key.
func (r *Redis[V]) Set(ctx context.Context, key string, value V) error {
	raw, err := json.Marshal(Entry[V]{Value: value, StoredAt: r.now()})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, max(r.expiry, 0)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix using SCAN, so large
// namespaces never block the server.
func (r *Redis[V]) DeletePrefix(ctx context.Context, prefix string) error {
	return r.deleteMatching(ctx, r.key(escapeGlob(prefix))+"*")
}

// Clear removes every key in the namespace.
func (r *Redis[V]) Clear(ctx context.Context) error {
	return r.deleteMatching(ctx, r.key("*"))
}

func (r *Redis[V]) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks connectivity for health probes.
func (r *Redis[V]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
