package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/wishlist"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// catalogMaxAge is the shared-cache lifetime of public catalog reads.
const catalogMaxAge = 30 * time.Second

// RouterConfig carries the router's collaborators.
type RouterConfig struct {
	ServiceName string
	Products    *service.ProductService
	Categories  *service.CategoryService
	Wishlist    *wishlist.Sync
	// Members backs the direct PUT and DELETE wishlist routes.
	Members repository.MembershipStore
	// WishlistLister enables GET /api/v1/wishlist when set.
	WishlistLister repository.WishlistRepository
	Health         *health.Handler
	CORS           middleware.CORSConfig
	// RateLimit bounds wishlist traffic per subject; zero RPS disables it.
	RateLimit middleware.RateLimitConfig
	AdminKey  string
	// JWTSecret enables Bearer tokens as a subject source.
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.Subject)
	r.Use(middleware.BearerSubject(cfg.JWTSecret, logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics(cfg.ServiceName))

	// Health and metrics
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(cfg.Products, logger)
	admin := middleware.RequireAdminKey(cfg.AdminKey)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogMaxAge))
			r.Get("/", productHandler.ListProducts)
			r.Get("/featured", productHandler.ListFeatured)
			r.Get("/recent", productHandler.ListRecent)
			r.Get("/{idOrSlug}", productHandler.GetProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(admin, middleware.NoStore)
			r.Post("/", productHandler.CreateProduct)
			r.Patch("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	r.With(admin, middleware.NoStore).Get("/api/v1/admin/stats", productHandler.Stats)

	categoryHandler := NewCategoryHandler(cfg.Categories, logger)
	r.With(middleware.CacheControl(catalogMaxAge)).Get("/api/v1/categories", categoryHandler.ListCategories)

	wishlistHandler := NewWishlistHandler(cfg.Wishlist, cfg.Members, cfg.WishlistLister, logger)

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Use(middleware.RequireSubject, middleware.RateLimit(cfg.RateLimit, logger), middleware.NoStore)

		if cfg.WishlistLister != nil {
			r.Get("/", wishlistHandler.ListWishlist)
		}
		r.Delete("/cache", wishlistHandler.InvalidateCache)
		r.Get("/{productId}", wishlistHandler.GetMembership)
		r.Put("/{productId}", wishlistHandler.Add)
		r.Delete("/{productId}", wishlistHandler.Remove)
		r.Post("/{productId}/toggle", wishlistHandler.Toggle)
	})

	return r
}
