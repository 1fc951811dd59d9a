package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/logger"
)

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Add(ctx, "ev-1"))
	seen, err := s.Contains(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = s.Contains(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := NewRedisIdempotencyStore(client, "storefront:events:", time.Hour)

	seen, err := s.Contains(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Add(ctx, "ev-1"))
	assert.True(t, mr.Exists("storefront:events:ev-1"))

	mr.FastForward(2 * time.Hour)
	seen, err = s.Contains(ctx, "ev-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	calls := 0
	h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), func(context.Context, *Event) error {
		calls++
		return nil
	}, logger.Discard())

	ev := &Event{EventID: "ev-1", EventType: "product.updated"}
	require.NoError(t, h(context.Background(), ev))
	require.NoError(t, h(context.Background(), ev))
	assert.Equal(t, 1, calls)
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Hour)
	fail := true
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		if fail {
			return errors.New("transient")
		}
		return nil
	}, logger.Discard())

	ev := &Event{EventID: "ev-2", EventType: "product.updated"}
	require.Error(t, h(context.Background(), ev))

	fail = false
	require.NoError(t, h(context.Background(), ev))
	seen, _ := store.Contains(context.Background(), "ev-2")
	assert.True(t, seen)
}

func TestIdempotentHandler_StoreDownStillProcesses(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	h := IdempotentHandler(NewRedisIdempotencyStore(client, "p:", time.Hour), func(context.Context, *Event) error {
		calls++
		return nil
	}, logger.Discard())

	require.NoError(t, h(context.Background(), &Event{EventID: "ev-3", EventType: "product.updated"}))
	assert.Equal(t, 1, calls)
}
