package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// CatalogStore is the read side of the product collection the query planner
// depends on.
type CatalogStore interface {
	// Query returns the records matching filter in order, sliced by limit and offset.
	Query(ctx context.Context, filter FilterSpec, order OrderSpec, limit, offset int) ([]domain.Product, error)

	// Count returns the number of records matching filter.
	Count(ctx context.Context, filter FilterSpec) (int64, error)

	// GetByID retrieves a product by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its unique slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

// ProductRepository adds the admin write path to CatalogStore.
type ProductRepository interface {
	CatalogStore

	// Create inserts a new product. A duplicate slug yields AlreadyExists.
	Create(ctx context.Context, product *domain.Product) error

	// Update replaces every mutable column of an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id string) error
}

// MembershipStore is the persisted set of (subject, product) wishlist pairs.
type MembershipStore interface {
	// Get reports whether subject has wishlisted productID.
	Get(ctx context.Context, subject, productID string) (bool, error)

	// Set makes membership equal value and returns the resulting value.
	// Setting the current value again is a no-op.
	Set(ctx context.Context, subject, productID string, value bool) (bool, error)
}

// WishlistRepository adds listing to MembershipStore.
type WishlistRepository interface {
	MembershipStore

	// List returns the subject's wishlist, newest first.
	List(ctx context.Context, subject string, limit, offset int) ([]domain.WishlistItem, error)

	// Count returns the size of the subject's wishlist.
	Count(ctx context.Context, subject string) (int64, error)
}

// CategoryRepository defines category persistence.
type CategoryRepository interface {
	// List returns all categories ordered by sort order then name.
	List(ctx context.Context) ([]domain.Category, error)

	// Upsert inserts a category or updates the one with the same slug.
	Upsert(ctx context.Context, category *domain.Category) error
}
