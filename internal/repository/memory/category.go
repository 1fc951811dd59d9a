package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

// CategoryStore is an in-process repository.CategoryRepository.
type CategoryStore struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
}

// NewCategoryStore returns a store seeded with categories.
func NewCategoryStore(categories ...domain.Category) *CategoryStore {
	s := &CategoryStore{categories: make(map[string]domain.Category)}
	for _, c := range categories {
		s.categories[c.Slug] = c
	}
	return s
}

// List returns all categories ordered by sort order then name.
func (s *CategoryStore) List(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Upsert stores c keyed by slug, keeping the original ID on update.
func (s *CategoryStore) Upsert(_ context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.categories[c.Slug]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	s.categories[c.Slug] = *c
	return nil
}
