package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

type membershipKey struct {
	subject   string
	productID string
}

// WishlistStore is an in-process repository.WishlistRepository.
type WishlistStore struct {
	mu    sync.RWMutex
	items map[membershipKey]time.Time
	now   func() time.Time
}

// NewWishlistStore returns an empty store.
func NewWishlistStore() *WishlistStore {
	return &WishlistStore{
		items: make(map[membershipKey]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get reports whether subject has wishlisted productID.
func (s *WishlistStore) Get(ctx context.Context, subject, productID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[membershipKey{subject, productID}]
	return ok, nil
}

// Set inserts or removes the membership and returns the resulting value.
func (s *WishlistStore) Set(ctx context.Context, subject, productID string, value bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{subject, productID}
	if !value {
		delete(s.items, key)
		return false, nil
	}
	if _, ok := s.items[key]; !ok {
		s.items[key] = s.now()
	}
	return true, nil
}

// List returns the subject's items, newest first.
func (s *WishlistStore) List(ctx context.Context, subject string, limit, offset int) ([]domain.WishlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	items := make([]domain.WishlistItem, 0)
	for k, at := range s.items {
		if k.subject == subject {
			items = append(items, domain.WishlistItem{Subject: subject, ProductID: k.productID, CreatedAt: at})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(items, func(a, b domain.WishlistItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if offset < 0 || offset >= len(items) {
		return []domain.WishlistItem{}, nil
	}
	return items[offset:min(len(items), offset+limit)], nil
}

// Count returns the size of the subject's wishlist.
func (s *WishlistStore) Count(ctx context.Context, subject string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for k := range s.items {
		if k.subject == subject {
			n++
		}
	}
	return n, nil
}
