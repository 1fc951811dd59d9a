package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/wishlist"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
	idempotencyTTL = 24 * time.Hour
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	wishlist       *wishlist.Sync
	handler        http.Handler
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			a.closeClients()
		}
	}()

	// Initialize OpenTelemetry tracing.
	var err error
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	if cfg.NeedsPostgres() {
		if err := a.connectPostgres(ctx); err != nil {
			return nil, err
		}
		healthHandler.Register("postgres", a.pool.Ping)
	}

	if cfg.CacheDriver == config.DriverRedis {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	// Repositories.
	products, categories := a.catalogStores()
	members, lister := a.wishlistStores()

	// Caches. Redis entries expire on their own; freshness is still judged
	// against the TTL so both drivers behave alike.
	var (
		listings  cache.Cache[domain.ListResult]
		confirmed cache.Cache[bool]
	)
	if a.redis != nil {
		listings = cache.NewRedis[domain.ListResult](a.redis, serviceName+":listings", cfg.ListingCacheTTL)
		confirmed = cache.NewRedis[bool](a.redis, serviceName+":wishlist", cfg.WishlistCacheTTL)
	} else {
		listings = cache.NewMemory[domain.ListResult]()
		confirmed = cache.NewMemory[bool]()
	}

	// Kafka producer. Absent brokers disable publishing.
	var (
		publisher service.EventPublisher
		hooks     []wishlist.Option
	)
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events := event.NewProducer(a.producer, logger)
		publisher = events
		hooks = append(hooks, wishlist.WithConfirmedHook(func(ctx context.Context, subject, productID string, wishlisted bool) {
			if err := events.PublishWishlistChanged(ctx, subject, productID, wishlisted); err != nil {
				logger.WarnContext(ctx, "failed to publish wishlist change",
					slog.String("product_id", productID),
					slog.String("error", err.Error()),
				)
			}
		}))
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Services.
	productService := service.NewProductService(products, listings, cfg.ListingCacheTTL, publisher, logger)
	categoryService := service.NewCategoryService(categories, logger)
	a.wishlist = wishlist.NewSync(members, confirmed, cfg.WishlistCacheTTL, logger, hooks...)

	if cfg.KafkaEnabled() {
		a.consumers = a.productConsumers(productService)
	}

	a.handler = handler.NewRouter(handler.RouterConfig{
		ServiceName:    serviceName,
		Products:       productService,
		Categories:     categoryService,
		Wishlist:       a.wishlist,
		Members:        members,
		WishlistLister: lister,
		Health:         healthHandler,
		CORS:           corsConfig(cfg.CORSOrigins),
		RateLimit:      cfg.RateLimit(),
		AdminKey:       cfg.AdminKey,
		JWTSecret:      cfg.JWTSecret,
		Logger:         logger,
	})
	if cfg.AdminKey == "" {
		logger.Warn("ADMIN_KEY is empty; admin routes will reject every request")
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ready = true
	return a, nil
}

func (a *App) connectPostgres(ctx context.Context) error {
	cfg := a.cfg
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		a.logger.Warn("failed to register pool metrics", slog.String("error", err.Error()))
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
	}
	return nil
}

func (a *App) catalogStores() (repository.ProductRepository, repository.CategoryRepository) {
	if a.cfg.StoreDriver == config.DriverPostgres {
		return postgres.NewProductRepository(a.pool), postgres.NewCategoryRepository(a.pool)
	}
	a.logger.Info("using in-memory catalog store")
	return memory.NewProductStore(), memory.NewCategoryStore()
}

// wishlistStores returns the membership store and, when the backend can
// enumerate items, the lister behind GET /api/v1/wishlist.
func (a *App) wishlistStores() (repository.MembershipStore, repository.WishlistRepository) {
	switch a.cfg.WishlistDriver {
	case config.DriverPostgres:
		repo := postgres.NewWishlistRepository(a.pool)
		return repo, repo
	case config.DriverRemote:
		a.logger.Info("using remote wishlist API", slog.String("url", a.cfg.WishlistRemoteURL))
		return wishlist.NewRemoteStore(a.cfg.WishlistRemoteURL, a.cfg.WishlistRemoteTimeout, a.logger), nil
	default:
		a.logger.Info("using in-memory wishlist store")
		store := memory.NewWishlistStore()
		return store, store
	}
}

// productConsumers subscribes to product events so every replica drops its
// cached listings when the catalog changes elsewhere.
func (a *App) productConsumers(products *service.ProductService) []*pkgkafka.Consumer {
	var idempotency pkgkafka.IdempotencyStore
	if a.redis != nil {
		idempotency = pkgkafka.NewRedisIdempotencyStore(a.redis, serviceName+":events:", idempotencyTTL)
	} else {
		idempotency = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	}
	handle := pkgkafka.IdempotentHandler(idempotency, event.NewProductHandler(products, a.logger), a.logger)
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)

	configs := event.ConsumerConfigs(a.cfg.KafkaBrokers, a.cfg.KafkaGroupID)
	consumers := make([]*pkgkafka.Consumer, 0, len(configs))
	for _, c := range configs {
		consumers = append(consumers, pkgkafka.NewConsumer(c, handle, a.logger).WithDLQ(a.dlq))
	}
	a.logger.Info("kafka consumers initialized",
		slog.String("group_id", a.cfg.KafkaGroupID),
		slog.Int("topic_count", len(consumers)),
	)
	return consumers
}

func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	return cfg
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and Kafka consumers, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components. In-flight wishlist mutations are
// given the shutdown deadline to settle before the stores close.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.wishlist.WaitContext(shutdownCtx); err != nil {
		a.logger.Error("wishlist mutations did not settle",
			slog.Int("in_flight", a.wishlist.InFlight()),
			slog.String("error", err.Error()),
		)
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeClients()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients() []error {
	var errs []error
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dlq producer: %w", err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
