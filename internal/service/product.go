package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
	"github.com/utafrali/storefront/pkg/validator"
)

// listingPrefix is shared by every ListParams.CacheKey.
const listingPrefix = "list?"

var listCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "catalog_list_cache_total",
	Help: "Product listing cache lookups by result (hit, miss, error).",
}, []string{"result"})

// EventPublisher announces catalog writes to other replicas.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, id string) error
}

// ProductService plans catalog reads against a CatalogStore and runs the
// admin write path.
type ProductService struct {
	repo       repository.ProductRepository
	listings   cache.Cache[domain.ListResult]
	listingTTL time.Duration
	events     EventPublisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewProductService creates a product service. listings and events may be nil
// to disable listing caching and event publishing.
func NewProductService(
	repo repository.ProductRepository,
	listings cache.Cache[domain.ListResult],
	listingTTL time.Duration,
	events EventPublisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:       repo,
		listings:   listings,
		listingTTL: listingTTL,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// storeErr passes typed outcomes through and turns every other store failure
// into StoreUnavailable.
func storeErr(op string, err error) error {
	if apperrors.IsDomain(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, apperrors.StoreUnavailable(err))
}

// List returns one page of products matching params. Page and page size are
// clamped; the total counts the whole filtered set. A failure of either the
// count or the page query fails the call.
func (s *ProductService) List(ctx context.Context, params domain.ListParams) (*domain.ListResult, error) {
	if params.Sort == "" {
		params.Sort = domain.SortNewest
	}
	if !params.Sort.Valid() {
		return nil, apperrors.InvalidParameter("sort must be one of: newest, price_asc, price_desc")
	}
	page := pagination.Clamp(params.Page, params.PageSize)
	params.Page, params.PageSize = page.Page, page.PageSize

	key := params.CacheKey()
	if cached, ok := s.cachedListing(ctx, key); ok {
		return cached, nil
	}

	filter := repository.FilterSpec{
		NameContains: params.Query,
		CategorySlug: params.Category,
		Featured:     params.Featured,
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, storeErr("count products", err)
	}

	items, err := s.repo.Query(ctx, filter, repository.OrderFor(params.Sort), page.PageSize, page.Offset())
	if err != nil {
		return nil, storeErr("query products", err)
	}
	if items == nil {
		items = []domain.Product{}
	}

	result := &domain.ListResult{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	s.storeListing(ctx, key, result)
	return result, nil
}

func (s *ProductService) cachedListing(ctx context.Context, key string) (*domain.ListResult, bool) {
	if s.listings == nil {
		return nil, false
	}
	entry, ok, err := s.listings.Get(ctx, key)
	if err != nil {
		listCacheLookups.WithLabelValues("error").Inc()
		s.logger.WarnContext(ctx, "listing cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !ok || !entry.Fresh(s.listingTTL, s.now()) {
		listCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	listCacheLookups.WithLabelValues("hit").Inc()
	result := entry.Value
	return &result, true
}

func (s *ProductService) storeListing(ctx context.Context, key string, result *domain.ListResult) {
	if s.listings == nil || s.listingTTL <= 0 {
		return
	}
	if err := s.listings.Set(ctx, key, *result); err != nil {
		s.logger.WarnContext(ctx, "listing cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateListings drops every cached listing page.
func (s *ProductService) InvalidateListings(ctx context.Context) error {
	if s.listings == nil {
		return nil
	}
	if err := s.listings.DeletePrefix(ctx, listingPrefix); err != nil {
		return fmt.Errorf("invalidate listings: %w", err)
	}
	return nil
}

// GetBySlug returns the product with the exact slug.
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("get product by slug", err)
	}
	return p, nil
}

// GetByID returns the product with the exact identifier.
func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get product by id", err)
	}
	return p, nil
}

// ListFeatured returns up to limit featured products, newest first.
func (s *ProductService) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	featured := true
	result, err := s.List(ctx, domain.ListParams{
		Featured: &featured,
		Sort:     domain.SortNewest,
		Page:     1,
		PageSize: pagination.ClampLimit(limit),
	})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// ListRecent returns the newest products in their lightweight projection.
func (s *ProductService) ListRecent(ctx context.Context, limit int) ([]domain.RecentItem, error) {
	products, err := s.repo.Query(ctx, repository.FilterSpec{}, repository.OrderFor(domain.SortNewest), pagination.ClampLimit(limit), 0)
	if err != nil {
		return nil, storeErr("query recent products", err)
	}
	items := make([]domain.RecentItem, 0, len(products))
	for i := range products {
		items = append(items, products[i].Recent())
	}
	return items, nil
}

// Stats summarizes the catalog for the admin dashboard.
func (s *ProductService) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	featured := true
	stats := &domain.CatalogStats{}

	type countQuery struct {
		filter repository.FilterSpec
		dst    *int64
	}
	for _, q := range []countQuery{
		{repository.FilterSpec{}, &stats.Total},
		{repository.FilterSpec{Featured: &featured}, &stats.Featured},
		{repository.FilterSpec{Kind: domain.KindDigital}, &stats.Digital},
		{repository.FilterSpec{Kind: domain.KindPhysical}, &stats.Physical},
	} {
		n, err := s.repo.Count(ctx, q.filter)
		if err != nil {
			return nil, storeErr("count products", err)
		}
		*q.dst = n
	}

	latest, err := s.repo.Query(ctx, repository.FilterSpec{}, repository.OrderFor(domain.SortNewest), 1, 0)
	if err != nil {
		return nil, storeErr("query latest product", err)
	}
	if len(latest) > 0 {
		created := latest[0].CreatedAt
		stats.LatestCreatedAt = &created
	}
	return stats, nil
}

// Create adds a product. An empty slug is derived from the name and an empty
// currency defaults to USD.
func (s *ProductService) Create(ctx context.Context, input *domain.CreateProductInput) (*domain.Product, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	productSlug := input.Slug
	if productSlug == "" {
		productSlug = slug.Generate(input.Name)
		if productSlug == "" {
			return nil, apperrors.InvalidInput("name must contain at least one letter or digit")
		}
	}
	currency := input.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:               uuid.New().String(),
		Slug:             productSlug,
		Name:             input.Name,
		Description:      input.Description,
		PriceCents:       input.PriceCents,
		Currency:         currency,
		ImageURL:         input.ImageURL,
		CategorySlug:     input.CategorySlug,
		Featured:         input.Featured,
		Media:            input.Media,
		Kind:             input.Kind,
		ShippingRequired: input.ShippingRequired,
		WeightGrams:      input.WeightGrams,
		DigitalVersion:   input.DigitalVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, storeErr("create product", err)
	}

	s.afterWrite(ctx, "product.created", product.ID, func() error {
		return s.events.PublishProductCreated(ctx, product)
	})
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)
	return product, nil
}

// Update applies a partial patch to the product with id.
func (s *ProductService) Update(ctx context.Context, id string, input *domain.UpdateProductInput) (*domain.Product, error) {
	if input.Empty() {
		return nil, apperrors.InvalidInput("no fields to update")
	}
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get product for update", err)
	}
	input.Apply(product)
	product.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, storeErr("update product", err)
	}

	s.afterWrite(ctx, "product.updated", product.ID, func() error {
		return s.events.PublishProductUpdated(ctx, product)
	})
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))
	return product, nil
}

// Delete removes the product with id.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr("delete product", err)
	}

	s.afterWrite(ctx, "product.deleted", id, func() error {
		return s.events.PublishProductDeleted(ctx, id)
	})
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// afterWrite drops cached listings and publishes the change. Neither failure
// fails the write that already committed.
func (s *ProductService) afterWrite(ctx context.Context, eventType, productID string, publish func() error) {
	if err := s.InvalidateListings(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate listing cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	if s.events == nil {
		return
	}
	if err := publish(); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}
