//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/logger"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

func startPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16",
			Env:          map[string]string{"POSTGRES_PASSWORD": "storefront", "POSTGRES_USER": "storefront", "POSTGRES_DB": "storefront"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		require.NoError(t, container.Terminate(terminateCtx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := database.DefaultPostgresConfig()
	cfg.Host = host
	cfg.Port = port.Int()

	pool, err := database.NewPostgresPool(ctx, &cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(ctx, pool, migrations.FS, logger.Discard()))
	return pool
}

func TestPostgres_CatalogAndWishlist(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool := startPostgres(ctx, t)
	products := NewProductRepository(pool)
	wishlist := NewWishlistRepository(pool)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	var all []domain.Product
	for i := range 25 {
		p := domain.Product{
			ID:           uuid.NewString(),
			Slug:         fmt.Sprintf("item-%02d", i),
			Name:         fmt.Sprintf("Item %02d", i),
			PriceCents:   int64(1000 + (i%5)*100),
			Currency:     "USD",
			CategorySlug: []string{"apparel", "kitchen"}[i%2],
			Featured:     i%3 == 0,
			CreatedAt:    base.Add(time.Duration(i/2) * time.Minute),
			UpdatedAt:    base,
		}
		require.NoError(t, products.Create(ctx, &p))
		all = append(all, p)
	}

	t.Run("page walk covers every match once", func(t *testing.T) {
		order := repository.OrderFor(domain.SortPriceDesc)
		total, err := products.Count(ctx, repository.FilterSpec{})
		require.NoError(t, err)
		require.Equal(t, int64(len(all)), total)

		seen := map[string]int{}
		for offset := 0; offset < int(total); offset += 7 {
			page, err := products.Query(ctx, repository.FilterSpec{}, order, 7, offset)
			require.NoError(t, err)
			for _, p := range page {
				seen[p.ID]++
			}
		}
		assert.Len(t, seen, len(all))
		for id, n := range seen {
			assert.Equal(t, 1, n, "product %s seen %d times", id, n)
		}
	})

	t.Run("repeated queries are identical", func(t *testing.T) {
		featured := true
		filter := repository.FilterSpec{NameContains: "item", Featured: &featured}
		first, err := products.Query(ctx, filter, repository.OrderFor(domain.SortPriceAsc), 5, 0)
		require.NoError(t, err)
		second, err := products.Query(ctx, filter, repository.OrderFor(domain.SortPriceAsc), 5, 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("wishlist membership", func(t *testing.T) {
		v, err := wishlist.Set(ctx, "user-1", all[0].ID, true)
		require.NoError(t, err)
		assert.True(t, v)
		v, err = wishlist.Set(ctx, "user-1", all[0].ID, true)
		require.NoError(t, err)
		assert.True(t, v)

		has, err := wishlist.Get(ctx, "user-1", all[0].ID)
		require.NoError(t, err)
		assert.True(t, has)

		n, err := wishlist.Count(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = wishlist.Set(ctx, "user-1", uuid.NewString(), true)
		assert.Error(t, err)
	})
}
