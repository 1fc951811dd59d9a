// Command seed populates the storefront database with a deterministic catalog.
// Re-running it updates the same rows instead of inserting duplicates.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/migrations"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// seedConfig holds the SEED_* settings.
type seedConfig struct {
	ExtraProducts int           `env:"EXTRA_PRODUCTS" envDefault:"0" validate:"min=0,max=100000"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"2m"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var sc seedConfig
	if err := pkgconfig.LoadWithPrefix(&sc, "SEED_"); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), sc.Timeout)
	defer cancel()

	if err := run(ctx, cfg, sc, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sc seedConfig, log *slog.Logger) error {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	categories, products := catalog(sc.ExtraProducts)
	stats, err := seed(ctx, postgres.NewCategoryRepository(pool), postgres.NewProductRepository(pool), categories, products, log)
	if err != nil {
		return err
	}
	log.Info("seed complete",
		slog.Int("categories", stats.categories),
		slog.Int("products_created", stats.created),
		slog.Int("products_updated", stats.updated),
	)
	return nil
}

type seedStats struct {
	categories int
	created    int
	updated    int
}

// seed upserts every category, then creates each product or overwrites the
// row already holding its slug.
func seed(
	ctx context.Context,
	categoryRepo repository.CategoryRepository,
	productRepo repository.ProductRepository,
	categories []domain.Category,
	products []domain.Product,
	log *slog.Logger,
) (seedStats, error) {
	var stats seedStats

	for i := range categories {
		if err := categoryRepo.Upsert(ctx, &categories[i]); err != nil {
			return stats, fmt.Errorf("upsert category %s: %w", categories[i].Slug, err)
		}
		stats.categories++
	}
	log.Info("categories seeded", slog.Int("count", stats.categories))

	for i := range products {
		p := &products[i]
		existing, err := productRepo.GetBySlug(ctx, p.Slug)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if err := productRepo.Create(ctx, p); err != nil {
				return stats, fmt.Errorf("create product %s: %w", p.Slug, err)
			}
			stats.created++
		case err != nil:
			return stats, fmt.Errorf("look up product %s: %w", p.Slug, err)
		default:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := productRepo.Update(ctx, p); err != nil {
				return stats, fmt.Errorf("update product %s: %w", p.Slug, err)
			}
			stats.updated++
		}

		if (i+1)%500 == 0 {
			log.Info("seeding products", slog.Int("done", i+1), slog.Int("total", len(products)))
		}
	}
	return stats, nil
}
