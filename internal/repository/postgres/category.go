package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/pkg/database"

	"github.com/utafrali/storefront/internal/domain"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by sort order then name.
func (r *CategoryRepository) List(ctx context.Context) (categories []domain.Category, err error) {
	query := `
		SELECT id, slug, name, COALESCE(description, ''), COALESCE(image_url, ''), sort_order, created_at
		FROM categories
		ORDER BY sort_order ASC, name ASC`

	ctx, end := database.TraceQuery(ctx, "categories.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories = []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Description, &c.ImageURL, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// Upsert inserts c or updates the category with the same slug. c.ID and
// c.CreatedAt are set to the stored values.
func (r *CategoryRepository) Upsert(ctx context.Context, c *domain.Category) (err error) {
	query := `
		INSERT INTO categories (id, slug, name, description, image_url, sort_order, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    image_url = EXCLUDED.image_url, sort_order = EXCLUDED.sort_order
		RETURNING id, created_at`

	ctx, end := database.TraceQuery(ctx, "categories.upsert", query)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, query,
		c.ID, c.Slug, c.Name, c.Description, c.ImageURL, c.SortOrder, c.CreatedAt,
	).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("upsert category %s: %w", c.Slug, err)
	}
	return nil
}
