package memory

import (
	"context"
	"slices"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// ProductStore is an in-process repository.ProductRepository.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewProductStore returns a store seeded with products.
func NewProductStore(products ...domain.Product) *ProductStore {
	s := &ProductStore{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = clone(p)
	}
	return s
}

// Query filters, orders and slices the products.
func (s *ProductStore) Query(ctx context.Context, filter repository.FilterSpec, order repository.OrderSpec, limit, offset int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := s.matching(filter)
	slices.SortFunc(matched, func(a, b domain.Product) int { return order.Compare(&a, &b) })

	if offset < 0 || offset >= len(matched) {
		return []domain.Product{}, nil
	}
	end := min(len(matched), offset+limit)
	return matched[offset:end], nil
}

// Count returns the number of products matching filter.
func (s *ProductStore) Count(ctx context.Context, filter repository.FilterSpec) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(s.matching(filter))), nil
}

func (s *ProductStore) matching(filter repository.FilterSpec) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Matches(&p) {
			out = append(out, clone(p))
		}
	}
	return out
}

// GetByID retrieves a product by its ID.
func (s *ProductStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	c := clone(p)
	return &c, nil
}

// GetBySlug retrieves a product by its slug.
func (s *ProductStore) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Slug == slug {
			c := clone(p)
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("product", slug)
}

// Create inserts a product, enforcing slug uniqueness.
func (s *ProductStore) Create(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(p.Slug, "") {
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	}
	s.products[p.ID] = clone(*p)
	return nil
}

// Update replaces an existing product.
func (s *ProductStore) Update(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if s.slugTaken(p.Slug, p.ID) {
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	}
	s.products[p.ID] = clone(*p)
	return nil
}

// Delete removes a product.
func (s *ProductStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(s.products, id)
	return nil
}

func (s *ProductStore) slugTaken(slug, exceptID string) bool {
	for id, p := range s.products {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func clone(p domain.Product) domain.Product {
	p.Media = slices.Clone(p.Media)
	if p.ShippingRequired != nil {
		v := *p.ShippingRequired
		p.ShippingRequired = &v
	}
	if p.WeightGrams != nil {
		v := *p.WeightGrams
		p.WeightGrams = &v
	}
	return p
}
