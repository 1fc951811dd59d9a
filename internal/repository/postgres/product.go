package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

const productColumns = `id, slug, name, COALESCE(description, ''), price_cents, currency,
	COALESCE(image_url, ''), COALESCE(category_slug, ''), featured, media, COALESCE(kind, ''),
	shipping_required, weight_grams, COALESCE(digital_version, ''), created_at, updated_at`

var orderColumns = map[repository.Field]string{
	repository.FieldPrice:     "price_cents",
	repository.FieldCreatedAt: "created_at",
	repository.FieldID:        "id",
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Query returns one ordered slice of the products matching filter.
func (r *ProductRepository) Query(ctx context.Context, filter repository.FilterSpec, order repository.OrderSpec, limit, offset int) (products []domain.Product, err error) {
	where, args := buildWhere(filter)
	orderBy, err := buildOrderBy(order)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "products.query", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Count returns the number of products matching filter.
func (r *ProductRepository) Count(ctx context.Context, filter repository.FilterSpec) (n int64, err error) {
	where, args := buildWhere(filter)
	query := "SELECT count(*) FROM products" + where

	ctx, end := database.TraceQuery(ctx, "products.count", query)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// GetByID retrieves a product by its ID. Malformed IDs are reported as not found.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("product", id)
	}
	return r.getOne(ctx, "products.get_by_id", "id", id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, "products.get_by_slug", "slug", slug)
}

func (r *ProductRepository) getOne(ctx context.Context, op, column, value string) (_ *domain.Product, err error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE %s = $1", productColumns, column)

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", value)
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	media, err := marshalMedia(p.Media)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, slug, name, description, price_cents, currency, image_url, category_slug,
			featured, media, kind, shipping_required, weight_grams, digital_version, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''),
			$9, $10, NULLIF($11, ''), $12, $13, NULLIF($14, ''), $15, $16)`

	ctx, end := database.TraceQuery(ctx, "products.create", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID, p.Slug, p.Name, p.Description, p.PriceCents, p.Currency, p.ImageURL, p.CategorySlug,
		p.Featured, media, p.Kind, p.ShippingRequired, p.WeightGrams, p.DigitalVersion, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	if _, err := uuid.Parse(p.ID); err != nil {
		return apperrors.NotFound("product", p.ID)
	}
	media, err := marshalMedia(p.Media)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET slug = $1, name = $2, description = NULLIF($3, ''), price_cents = $4, currency = $5,
		    image_url = NULLIF($6, ''), category_slug = NULLIF($7, ''), featured = $8, media = $9,
		    kind = NULLIF($10, ''), shipping_required = $11, weight_grams = $12,
		    digital_version = NULLIF($13, ''), updated_at = $14
		WHERE id = $15`

	ctx, end := database.TraceQuery(ctx, "products.update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Slug, p.Name, p.Description, p.PriceCents, p.Currency,
		p.ImageURL, p.CategorySlug, p.Featured, media,
		p.Kind, p.ShippingRequired, p.WeightGrams,
		p.DigitalVersion, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFound("product", id)
	}
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
// An empty filter renders as the empty string.
func buildWhere(f repository.FilterSpec) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.NameContains != "" {
		add(`name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(f.NameContains)+"%")
	}
	if f.CategorySlug != "" {
		add("category_slug = $%d", f.CategorySlug)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if f.Kind != "" {
		add("kind = $%d", f.Kind)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func buildOrderBy(o repository.OrderSpec) (string, error) {
	if len(o) == 0 {
		o = repository.OrderFor(domain.SortNewest)
	}
	terms := make([]string, 0, len(o))
	for _, term := range o {
		column, ok := orderColumns[term.Field]
		if !ok {
			return "", fmt.Errorf("unsupported order field %q", term.Field)
		}
		dir := "ASC"
		if term.Desc {
			dir = "DESC"
		}
		terms = append(terms, column+" "+dir)
	}
	return strings.Join(terms, ", "), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p     domain.Product
		media []byte
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.PriceCents, &p.Currency,
		&p.ImageURL, &p.CategorySlug, &p.Featured, &media, &p.Kind,
		&p.ShippingRequired, &p.WeightGrams, &p.DigitalVersion, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan product: %w", err)
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &p.Media); err != nil {
			return p, fmt.Errorf("unmarshal media: %w", err)
		}
	}
	return p, nil
}

func marshalMedia(media []domain.Media) ([]byte, error) {
	if len(media) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("marshal media: %w", err)
	}
	return b, nil
}

// isUniqueViolation checks for SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation checks for SQLSTATE 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
