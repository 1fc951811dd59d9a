package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
)

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db database.DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Get reports whether subject has wishlisted productID.
func (r *WishlistRepository) Get(ctx context.Context, subject, productID string) (exists bool, err error) {
	if _, err := uuid.Parse(productID); err != nil {
		return false, nil
	}
	query := `SELECT EXISTS(SELECT 1 FROM wishlist_items WHERE subject = $1 AND product_id = $2)`

	ctx, end := database.TraceQuery(ctx, "wishlist.get", query)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, query, subject, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("get wishlist membership: %w", err)
	}
	return exists, nil
}

// Set inserts or deletes the membership row. Both directions are idempotent.
func (r *WishlistRepository) Set(ctx context.Context, subject, productID string, value bool) (_ bool, err error) {
	if _, err := uuid.Parse(productID); err != nil {
		if !value {
			return false, nil
		}
		return false, apperrors.NotFound("product", productID)
	}

	query := `DELETE FROM wishlist_items WHERE subject = $1 AND product_id = $2`
	if value {
		query = `INSERT INTO wishlist_items (subject, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}

	ctx, end := database.TraceQuery(ctx, "wishlist.set", query)
	defer func() { end(err) }()

	if _, err := r.db.Exec(ctx, query, subject, productID); err != nil {
		if isForeignKeyViolation(err) {
			return false, apperrors.NotFound("product", productID)
		}
		return false, fmt.Errorf("set wishlist membership: %w", err)
	}
	return value, nil
}

// List returns the subject's wishlist, newest first.
func (r *WishlistRepository) List(ctx context.Context, subject string, limit, offset int) (items []domain.WishlistItem, err error) {
	query := `
		SELECT product_id, created_at
		FROM wishlist_items
		WHERE subject = $1
		ORDER BY created_at DESC, product_id ASC
		LIMIT $2 OFFSET $3`

	ctx, end := database.TraceQuery(ctx, "wishlist.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, subject, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	items = []domain.WishlistItem{}
	for rows.Next() {
		item := domain.WishlistItem{Subject: subject}
		if err := rows.Scan(&item.ProductID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}
	return items, nil
}

// Count returns the size of the subject's wishlist.
func (r *WishlistRepository) Count(ctx context.Context, subject string) (n int64, err error) {
	query := `SELECT count(*) FROM wishlist_items WHERE subject = $1`

	ctx, end := database.TraceQuery(ctx, "wishlist.count", query)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, query, subject).Scan(&n); err != nil {
		return 0, fmt.Errorf("count wishlist: %w", err)
	}
	return n, nil
}
