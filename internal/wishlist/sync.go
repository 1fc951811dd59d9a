// Package wishlist keeps a subject's wishlist flags responsive: a toggle is
// shown immediately and reconciled with the membership store in the
// background. When calls overlap, the settlement of the most recently issued
// toggle for a key decides the final state.
package wishlist

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Settlement outcomes.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeReverted   = "reverted"
	OutcomeSuperseded = "superseded"
)

var settlements = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wishlist_settlements_total",
	Help: "Settled wishlist toggles by outcome.",
}, []string{"outcome"})

// DefaultMutationTimeout bounds one remote Set call.
const DefaultMutationTimeout = 10 * time.Second

// Settlement reports how one toggle ended.
type Settlement struct {
	ProductID string
	// Seq orders toggles; a higher value was issued later.
	Seq uint64
	// Value is the server's value on success and the toggle's snapshot on
	// failure.
	Value bool
	// Applied is false when a later toggle for the same key was issued before
	// this one settled; such settlements leave state untouched.
	Applied bool
	// Err is a MutationFailed error when the store call failed.
	Err error
}

// Outcome classifies the settlement for metrics and responses.
func (s Settlement) Outcome() string {
	switch {
	case !s.Applied:
		return OutcomeSuperseded
	case s.Err != nil:
		return OutcomeReverted
	default:
		return OutcomeConfirmed
	}
}

// ConfirmedFunc is called after the store confirmed the latest toggle for a key.
type ConfirmedFunc func(ctx context.Context, subject, productID string, wishlisted bool)

// keyState tracks one (subject, product) key while a toggle is in flight or
// a store read is outstanding. seq is the latest toggle issued for the key.
type keyState struct {
	pending   bool
	displayed bool
	seq       uint64
	readers   int
}

// Sync is the optimistic membership view over a MembershipStore.
type Sync struct {
	store     repository.MembershipStore
	confirmed cache.Cache[bool]
	ttl       time.Duration
	timeout   time.Duration
	onConfirm ConfirmedFunc
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	keys map[string]*keyState
	seq  uint64
	wg   sync.WaitGroup

	// writeMu orders confirmed-cache writes against the generation check of
	// store reads.
	writeMu sync.Mutex
}

// Option configures a Sync.
type Option func(*Sync)

// WithMutationTimeout bounds each store Set call.
func WithMutationTimeout(d time.Duration) Option {
	return func(s *Sync) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConfirmedHook registers fn to run after each confirmed settlement.
func WithConfirmedHook(fn ConfirmedFunc) Option {
	return func(s *Sync) { s.onConfirm = fn }
}

// NewSync creates a Sync. Confirmed values are cached in confirmed and
// trusted for ttl; a non-positive ttl always consults the store.
func NewSync(store repository.MembershipStore, confirmed cache.Cache[bool], ttl time.Duration, logger *slog.Logger, opts ...Option) *Sync {
	s := &Sync{
		store:     store,
		confirmed: confirmed,
		ttl:       ttl,
		timeout:   DefaultMutationTimeout,
		logger:    logger,
		now:       time.Now,
		keys:      make(map[string]*keyState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func membershipKey(subject, productID string) string {
	return url.PathEscape(subject) + "/" + url.PathEscape(productID)
}

func subjectPrefix(subject string) string {
	return url.PathEscape(subject) + "/"
}

// Has reports whether productID is shown as wishlisted for subject.
func (s *Sync) Has(ctx context.Context, subject, productID string) (bool, error) {
	m, err := s.Status(ctx, subject, productID)
	if err != nil {
		return false, err
	}
	return m.Wishlisted, nil
}

// Status is Has plus whether a toggle is still in flight.
func (s *Sync) Status(ctx context.Context, subject, productID string) (domain.Membership, error) {
	key := membershipKey(subject, productID)

	s.mu.Lock()
	if ks, ok := s.keys[key]; ok && ks.pending {
		s.mu.Unlock()
		return domain.Membership{ProductID: productID, Wishlisted: ks.displayed, Pending: true}, nil
	}
	gen := s.acquire(key)
	s.mu.Unlock()

	v, err := s.readConfirmed(ctx, key, subject, productID, gen)

	s.mu.Lock()
	ks := s.keys[key]
	pending, displayed := ks.pending, ks.displayed
	s.release(key, ks)
	s.mu.Unlock()

	if pending {
		return domain.Membership{ProductID: productID, Wishlisted: displayed, Pending: true}, nil
	}
	if err != nil {
		return domain.Membership{}, err
	}
	return domain.Membership{ProductID: productID, Wishlisted: v}, nil
}

// acquire registers a reader on key and returns the key's toggle generation.
// s.mu must be held.
func (s *Sync) acquire(key string) uint64 {
	ks, ok := s.keys[key]
	if !ok {
		ks = &keyState{}
		s.keys[key] = ks
	}
	ks.readers++
	return ks.seq
}

// release drops a reader and forgets the key once nothing references it.
// s.mu must be held.
func (s *Sync) release(key string, ks *keyState) {
	ks.readers--
	s.forget(key, ks)
}

func (s *Sync) forget(key string, ks *keyState) {
	if !ks.pending && ks.readers == 0 {
		delete(s.keys, key)
	}
}

// readConfirmed returns the cached value when fresh, otherwise reads the
// store. The answer is cached only if no toggle for key was issued since gen.
// The caller holds a reader on key.
func (s *Sync) readConfirmed(ctx context.Context, key, subject, productID string, gen uint64) (bool, error) {
	entry, ok, err := s.confirmed.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "wishlist cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if ok && entry.Fresh(s.ttl, s.now()) {
		return entry.Value, nil
	}

	v, err := s.store.Get(ctx, subject, productID)
	if err != nil {
		if apperrors.IsDomain(err) {
			return false, fmt.Errorf("get wishlist membership: %w", err)
		}
		return false, fmt.Errorf("get wishlist membership: %w", apperrors.StoreUnavailable(err))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	current := s.keys[key].seq == gen
	s.mu.Unlock()
	if current {
		s.cacheConfirmed(ctx, key, v)
	}
	return v, nil
}

func (s *Sync) cacheConfirmed(ctx context.Context, key string, v bool) {
	if err := s.confirmed.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "wishlist cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Toggle flips the displayed value for (subject, productID) and returns it
// at once. The store call runs in the background, detached from ctx
// cancellation; its Settlement is delivered on the returned channel, which
// receives exactly one value. An error is returned only when the current
// value of an idle key could not be loaded.
func (s *Sync) Toggle(ctx context.Context, subject, productID string) (bool, <-chan Settlement, error) {
	key := membershipKey(subject, productID)

	var (
		baseline     bool
		haveBaseline bool
		gen          uint64
		snapshot     bool
	)
	s.mu.Lock()
	for {
		ks := s.keys[key]
		if haveBaseline {
			ks.readers--
		}
		if ks != nil && ks.pending {
			snapshot = ks.displayed
			break
		}
		// The baseline is usable only if no toggle for key was issued and
		// settled while it was being read.
		if haveBaseline && ks.seq == gen {
			snapshot = baseline
			break
		}

		gen = s.acquire(key)
		s.mu.Unlock()
		v, err := s.readConfirmed(ctx, key, subject, productID, gen)
		s.mu.Lock()
		if err != nil {
			s.release(key, s.keys[key])
			s.mu.Unlock()
			return false, nil, err
		}
		baseline, haveBaseline = v, true
	}

	ks := s.keys[key]
	next := !snapshot
	s.seq++
	seq := s.seq
	ks.pending = true
	ks.displayed = next
	ks.seq = seq
	s.wg.Add(1)
	s.mu.Unlock()

	done := make(chan Settlement, 1)
	go s.mutate(context.WithoutCancel(ctx), subject, productID, key, seq, snapshot, next, done)
	return next, done, nil
}

func (s *Sync) mutate(ctx context.Context, subject, productID, key string, seq uint64, snapshot, want bool, done chan<- Settlement) {
	defer s.wg.Done()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	value, err := s.store.Set(callCtx, subject, productID, want)
	cancel()

	done <- s.settle(ctx, key, subject, productID, seq, snapshot, value, err)
}

// settle applies the result of toggle seq if it is still the latest for key.
// A failed toggle only reverts the displayed value; the confirmed cache entry
// is dropped so the next read goes to the store.
func (s *Sync) settle(ctx context.Context, key, subject, productID string, seq uint64, snapshot, value bool, callErr error) Settlement {
	st := Settlement{ProductID: productID, Seq: seq, Value: value}
	if callErr != nil {
		st.Value = snapshot
		st.Err = apperrors.MutationFailed(productID, callErr)
	}

	s.mu.Lock()
	ks, ok := s.keys[key]
	st.Applied = ok && ks.pending && ks.seq == seq
	if st.Applied {
		ks.displayed = st.Value
	}
	s.mu.Unlock()

	settlements.WithLabelValues(st.Outcome()).Inc()

	if !st.Applied {
		s.logger.DebugContext(ctx, "superseded wishlist settlement ignored",
			slog.String("product_id", productID),
			slog.Uint64("seq", seq),
		)
		return st
	}

	s.writeMu.Lock()
	if st.Err == nil {
		s.cacheConfirmed(ctx, key, st.Value)
	} else if err := s.confirmed.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "wishlist cache delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	s.writeMu.Unlock()

	s.mu.Lock()
	if ks.seq == seq {
		ks.pending = false
		s.forget(key, ks)
	}
	s.mu.Unlock()

	if st.Err != nil {
		s.logger.WarnContext(ctx, "wishlist toggle reverted",
			slog.String("product_id", productID),
			slog.Bool("wishlisted", st.Value),
			slog.String("error", callErr.Error()),
		)
		return st
	}
	if s.onConfirm != nil {
		s.onConfirm(ctx, subject, productID, st.Value)
	}
	return st
}

// Invalidate drops the cached value for one key.
func (s *Sync) Invalidate(ctx context.Context, subject, productID string) error {
	if err := s.confirmed.Delete(ctx, membershipKey(subject, productID)); err != nil {
		return fmt.Errorf("invalidate wishlist membership: %w", err)
	}
	return nil
}

// InvalidateSubject drops every cached value of subject.
func (s *Sync) InvalidateSubject(ctx context.Context, subject string) error {
	if err := s.confirmed.DeletePrefix(ctx, subjectPrefix(subject)); err != nil {
		return fmt.Errorf("invalidate wishlist subject: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached value.
func (s *Sync) InvalidateAll(ctx context.Context) error {
	if err := s.confirmed.Clear(ctx); err != nil {
		return fmt.Errorf("invalidate wishlist cache: %w", err)
	}
	return nil
}

// InFlight returns the number of keys with an unsettled toggle.
func (s *Sync) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ks := range s.keys {
		if ks.pending {
			n++
		}
	}
	return n
}

// Wait blocks until every store call started by Toggle has settled. Callers
// stop issuing toggles first.
func (s *Sync) Wait() {
	s.wg.Wait()
}

// WaitContext is Wait bounded by ctx.
func (s *Sync) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
