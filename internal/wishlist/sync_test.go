package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/repository/memory"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	alice   = "user-alice"
	product = "11111111-1111-1111-1111-111111111111"
)

type setResult struct {
	value bool
	err   error
}

// setCall is one Set held by gatedStore until the test releases it.
type setCall struct {
	ctx       context.Context
	productID string
	want      bool
	release   chan setResult
}

func (c *setCall) succeed(v bool) { c.release <- setResult{value: v} }
func (c *setCall) fail(err error) { c.release <- setResult{err: err} }

// gatedStore is a MembershipStore whose Set calls block until released, so
// tests can choose the order in which toggles settle.
type gatedStore struct {
	mu      sync.Mutex
	members map[string]bool
	gets    int
	getErr  error
	calls   chan *setCall

	// getGate, when set, holds the next Get after it has read its value.
	getGate    chan struct{}
	getEntered chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{members: map[string]bool{}, calls: make(chan *setCall, 16)}
}

func (g *gatedStore) Get(_ context.Context, subject, productID string) (bool, error) {
	g.mu.Lock()
	g.gets++
	v, err := g.members[subject+"/"+productID], g.getErr
	gate := g.getGate
	g.getGate = nil
	g.mu.Unlock()

	if gate != nil {
		close(g.getEntered)
		<-gate
	}
	if err != nil {
		return false, err
	}
	return v, nil
}

// holdNextGet makes the next Get block after reading; closing the returned
// channel lets it return.
func (g *gatedStore) holdNextGet() (entered <-chan struct{}, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getGate = make(chan struct{})
	g.getEntered = make(chan struct{})
	return g.getEntered, g.getGate
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("store read not started")
	}
}

func (g *gatedStore) Set(ctx context.Context, subject, productID string, value bool) (bool, error) {
	c := &setCall{ctx: ctx, productID: productID, want: value, release: make(chan setResult, 1)}
	g.calls <- c
	r := <-c.release
	if r.err == nil {
		g.mu.Lock()
		g.members[subject+"/"+productID] = r.value
		g.mu.Unlock()
	}
	return r.value, r.err
}

func (g *gatedStore) getCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets
}

func (g *gatedStore) next(t *testing.T) *setCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no store call issued")
		return nil
	}
}

func await(t *testing.T, ch <-chan Settlement) Settlement {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("settlement not delivered")
		return Settlement{}
	}
}

func newTestSync(store *gatedStore, opts ...Option) *Sync {
	return NewSync(store, cache.NewMemory[bool](), time.Minute, logger.Discard(), opts...)
}

func has(t *testing.T, s *Sync, subject, productID string) bool {
	t.Helper()
	v, err := s.Has(context.Background(), subject, productID)
	require.NoError(t, err)
	return v
}

func TestHas_CachesConfirmedValue(t *testing.T) {
	store := newGatedStore()
	store.members[alice+"/"+product] = true
	s := newTestSync(store)

	assert.True(t, has(t, s, alice, product))
	assert.True(t, has(t, s, alice, product))
	assert.Equal(t, 1, store.getCount())

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.True(t, has(t, s, alice, product))
	assert.Equal(t, 2, store.getCount())
}

func TestHas_StoreFailure(t *testing.T) {
	store := newGatedStore()
	store.getErr = errors.New("dial tcp: connection refused")
	s := newTestSync(store)

	_, err := s.Has(context.Background(), alice, product)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
}

func TestToggle_RoundTrip(t *testing.T) {
	store := newGatedStore()
	var confirmed []bool
	s := newTestSync(store, WithConfirmedHook(func(_ context.Context, subject, productID string, v bool) {
		confirmed = append(confirmed, v)
	}))
	ctx := context.Background()

	shown, done, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, shown)

	status, err := s.Status(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, status.Wishlisted)
	assert.True(t, status.Pending)

	call := store.next(t)
	assert.True(t, call.want)
	call.succeed(true)

	st := await(t, done)
	assert.True(t, st.Applied)
	assert.True(t, st.Value)
	assert.NoError(t, st.Err)
	assert.Equal(t, OutcomeConfirmed, st.Outcome())

	assert.Zero(t, s.InFlight())
	assert.True(t, has(t, s, alice, product))
	assert.Equal(t, []bool{true}, confirmed)
	assert.Equal(t, 1, store.getCount(), "settled value is served from cache")
}

func TestToggle_FailureReverts(t *testing.T) {
	store := newGatedStore()
	var hookCalls int
	s := newTestSync(store, WithConfirmedHook(func(context.Context, string, string, bool) { hookCalls++ }))

	shown, done, err := s.Toggle(context.Background(), alice, product)
	require.NoError(t, err)
	assert.True(t, shown)

	store.next(t).fail(errors.New("503 from wishlist api"))

	st := await(t, done)
	assert.True(t, st.Applied)
	assert.False(t, st.Value)
	assert.True(t, errors.Is(st.Err, apperrors.ErrMutationFailed))
	assert.Equal(t, OutcomeReverted, st.Outcome())
	assert.False(t, has(t, s, alice, product))
	assert.Zero(t, hookCalls)
}

func TestToggle_DoubleToggleLatestWins(t *testing.T) {
	t.Run("later call settles first", func(t *testing.T) {
		store := newGatedStore()
		s := newTestSync(store)
		ctx := context.Background()

		first, done1, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)
		second, done2, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)
		assert.True(t, first)
		assert.False(t, second)

		call1, call2 := store.next(t), store.next(t)
		if !call1.want {
			call1, call2 = call2, call1
		}

		call2.succeed(false)
		st2 := await(t, done2)
		assert.True(t, st2.Applied)
		assert.False(t, has(t, s, alice, product))

		call1.succeed(true)
		st1 := await(t, done1)
		assert.False(t, st1.Applied)
		assert.Equal(t, OutcomeSuperseded, st1.Outcome())
		assert.Less(t, st1.Seq, st2.Seq)

		assert.False(t, has(t, s, alice, product), "stale settlement must not resurrect true")
	})

	t.Run("earlier call settles first", func(t *testing.T) {
		store := newGatedStore()
		s := newTestSync(store)
		ctx := context.Background()

		_, done1, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)
		_, done2, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)

		call1, call2 := store.next(t), store.next(t)
		if !call1.want {
			call1, call2 = call2, call1
		}

		call1.succeed(true)
		assert.False(t, await(t, done1).Applied)

		status, err := s.Status(ctx, alice, product)
		require.NoError(t, err)
		assert.True(t, status.Pending)
		assert.False(t, status.Wishlisted)

		call2.succeed(false)
		assert.True(t, await(t, done2).Applied)
		assert.False(t, has(t, s, alice, product))
		assert.Zero(t, s.InFlight())
	})

	t.Run("latest fails after earlier succeeded", func(t *testing.T) {
		store := newGatedStore()
		s := newTestSync(store)
		ctx := context.Background()

		_, done1, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)
		_, done2, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)

		call1, call2 := store.next(t), store.next(t)
		if !call1.want {
			call1, call2 = call2, call1
		}

		call1.succeed(true)
		await(t, done1)
		call2.fail(errors.New("timeout"))
		st := await(t, done2)

		assert.True(t, st.Applied)
		assert.True(t, st.Value, "reverts to the value shown when the second toggle was issued")
		assert.True(t, has(t, s, alice, product))
	})

	t.Run("every toggle fails", func(t *testing.T) {
		store := newGatedStore()
		s := newTestSync(store)
		ctx := context.Background()

		_, done1, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)
		_, done2, err := s.Toggle(ctx, alice, product)
		require.NoError(t, err)

		call1, call2 := store.next(t), store.next(t)
		if !call1.want {
			call1, call2 = call2, call1
		}

		call1.fail(errors.New("timeout"))
		assert.False(t, await(t, done1).Applied)
		call2.fail(errors.New("timeout"))
		st := await(t, done2)
		assert.True(t, st.Applied)
		assert.True(t, st.Value)
		assert.Equal(t, OutcomeReverted, st.Outcome())

		gets := store.getCount()
		status, err := s.Status(ctx, alice, product)
		require.NoError(t, err)
		assert.False(t, status.Pending)
		assert.False(t, status.Wishlisted, "an unconfirmed snapshot is not served as confirmed")
		assert.Equal(t, gets+1, store.getCount())
		assert.Zero(t, s.InFlight())
	})
}

func TestHas_ReadOverlappingToggleIsNotCached(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store)
	ctx := context.Background()

	entered, release := store.holdNextGet()
	result := make(chan bool, 1)
	go func() {
		v, _ := s.Has(ctx, alice, product)
		result <- v
	}()
	waitClosed(t, entered)

	shown, done, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, shown)
	store.next(t).succeed(true)
	st := await(t, done)
	require.True(t, st.Applied)
	require.True(t, st.Value)

	close(release)
	assert.False(t, <-result, "the overlapping read answers with what it saw")

	assert.True(t, has(t, s, alice, product))
	assert.Zero(t, s.InFlight())
	s.mu.Lock()
	assert.Empty(t, s.keys)
	s.mu.Unlock()
}

func TestToggle_ReloadsBaselineAfterConcurrentToggle(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store)
	ctx := context.Background()

	entered, release := store.holdNextGet()
	type toggled struct {
		shown bool
		done  <-chan Settlement
		err   error
	}
	slow := make(chan toggled, 1)
	go func() {
		shown, done, err := s.Toggle(ctx, alice, product)
		slow <- toggled{shown, done, err}
	}()
	waitClosed(t, entered)

	shown, done, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, shown)
	store.next(t).succeed(true)
	require.True(t, await(t, done).Applied)

	close(release)
	var got toggled
	select {
	case got = <-slow:
	case <-time.After(2 * time.Second):
		t.Fatal("toggle did not return")
	}
	require.NoError(t, got.err)
	assert.False(t, got.shown, "flips the value confirmed by the other toggle")

	call := store.next(t)
	assert.False(t, call.want)
	call.succeed(false)
	assert.True(t, await(t, got.done).Applied)
	assert.False(t, has(t, s, alice, product))
}

func TestToggle_KeysAreIndependent(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store)
	ctx := context.Background()

	_, doneA, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	_, doneB, err := s.Toggle(ctx, "user-bob", product)
	require.NoError(t, err)

	store.next(t).succeed(true)
	store.next(t).succeed(true)
	assert.True(t, await(t, doneA).Applied)
	assert.True(t, await(t, doneB).Applied)
}

func TestToggle_BaselineLoadFailure(t *testing.T) {
	store := newGatedStore()
	store.getErr = errors.New("connection reset")
	s := newTestSync(store)

	_, done, err := s.Toggle(context.Background(), alice, product)
	require.Error(t, err)
	assert.Nil(t, done)
	assert.True(t, errors.Is(err, apperrors.ErrStoreUnavailable))
	assert.Zero(t, s.InFlight())
}

func TestToggle_SurvivesCallerCancellation(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store, WithMutationTimeout(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	_, done, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	cancel()

	call := store.next(t)
	assert.NoError(t, call.ctx.Err())
	_, hasDeadline := call.ctx.Deadline()
	assert.True(t, hasDeadline)
	call.succeed(true)

	assert.True(t, await(t, done).Applied)
}

func TestWait(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store)

	_, _, err := s.Toggle(context.Background(), alice, product)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitContext(waitCtx), context.DeadlineExceeded)

	store.next(t).succeed(true)
	s.Wait()
	assert.Zero(t, s.InFlight())
}

func TestInvalidate(t *testing.T) {
	store := newGatedStore()
	s := newTestSync(store)
	ctx := context.Background()
	other := "22222222-2222-2222-2222-222222222222"

	has(t, s, alice, product)
	has(t, s, alice, other)
	has(t, s, "user-bob", product)
	require.Equal(t, 3, store.getCount())

	require.NoError(t, s.Invalidate(ctx, alice, product))
	has(t, s, alice, product)
	assert.Equal(t, 4, store.getCount())

	require.NoError(t, s.InvalidateSubject(ctx, alice))
	has(t, s, alice, product)
	has(t, s, alice, other)
	has(t, s, "user-bob", product)
	assert.Equal(t, 6, store.getCount())

	require.NoError(t, s.InvalidateAll(ctx))
	has(t, s, "user-bob", product)
	assert.Equal(t, 7, store.getCount())
}

func TestSync_WithMemoryStore(t *testing.T) {
	store := memory.NewWishlistStore()
	s := NewSync(store, cache.NewMemory[bool](), 0, logger.Discard())
	ctx := context.Background()

	shown, done, err := s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, shown)
	assert.True(t, await(t, done).Value)

	stored, err := store.Get(ctx, alice, product)
	require.NoError(t, err)
	assert.True(t, stored)

	shown, done, err = s.Toggle(ctx, alice, product)
	require.NoError(t, err)
	assert.False(t, shown)
	await(t, done)

	n, err := store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMembershipKey_EscapesSubject(t *testing.T) {
	assert.Equal(t, "a%2Fb/p-1", membershipKey("a/b", "p-1"))
	assert.NotEqual(t, membershipKey("a/b", "c"), membershipKey("a", "b/c"))
}
