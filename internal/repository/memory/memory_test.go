package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: "p1", Slug: "classic-t-shirt", Name: "Classic T-Shirt", PriceCents: 1999, Currency: "USD", CategorySlug: "apparel", Featured: true, CreatedAt: base},
		{ID: "p2", Slug: "coffee-mug", Name: "Coffee Mug", PriceCents: 1200, Currency: "USD", CategorySlug: "kitchen", CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Slug: "sweatshirt", Name: "Sweatshirt", PriceCents: 4500, Currency: "USD", CategorySlug: "apparel", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestProductStore_QueryFiltersOrdersAndSlices(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(sampleProducts()...)

	filter := repository.FilterSpec{NameContains: "SHIRT", CategorySlug: "apparel"}
	got, err := s.Query(ctx, filter, repository.OrderFor(domain.SortNewest), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1"}, ids(got))

	n, err := s.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = s.Query(ctx, repository.FilterSpec{}, repository.OrderFor(domain.SortPriceAsc), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, ids(got))

	got, err = s.Query(ctx, repository.FilterSpec{}, repository.OrderFor(domain.SortNewest), 10, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = s.Query(ctx, repository.FilterSpec{}, repository.OrderFor(domain.SortNewest), 10, -16)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductStore_Query_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProductStore().Query(ctx, repository.FilterSpec{}, nil, 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProductStore_Lookups(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(sampleProducts()...)

	p, err := s.GetBySlug(ctx, "coffee-mug")
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)

	_, err = s.GetBySlug(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = s.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestProductStore_Writes(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(sampleProducts()...)

	dup := domain.Product{ID: "p9", Slug: "coffee-mug", Name: "Another Mug"}
	assert.True(t, errors.Is(s.Create(ctx, &dup), apperrors.ErrAlreadyExists))

	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	p.Slug = "sweatshirt"
	assert.True(t, errors.Is(s.Update(ctx, p), apperrors.ErrAlreadyExists))

	p.Slug = "tee"
	require.NoError(t, s.Update(ctx, p))
	got, err := s.GetBySlug(ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	require.NoError(t, s.Delete(ctx, "p1"))
	assert.True(t, errors.Is(s.Delete(ctx, "p1"), apperrors.ErrNotFound))
}

func TestProductStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore(domain.Product{ID: "p1", Slug: "a", Media: []domain.Media{{URL: "https://x/1.jpg", Kind: domain.MediaImage}}})

	p, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	p.Media[0].URL = "mutated"

	again, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://x/1.jpg", again.Media[0].URL)
}

func TestWishlistStore_SetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewWishlistStore()

	for range 2 {
		v, err := s.Set(ctx, "user-1", "p1", true)
		require.NoError(t, err)
		assert.True(t, v)
	}
	n, err := s.Count(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	v, err := s.Set(ctx, "user-1", "p1", false)
	require.NoError(t, err)
	assert.False(t, v)

	has, err := s.Get(ctx, "user-1", "p1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestWishlistStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewWishlistStore()
	tick := base
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	for i := 1; i <= 3; i++ {
		_, err := s.Set(ctx, "user-1", fmt.Sprintf("p%d", i), true)
		require.NoError(t, err)
	}
	_, err := s.Set(ctx, "user-2", "p1", true)
	require.NoError(t, err)

	items, err := s.List(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p3", items[0].ProductID)
	assert.Equal(t, "p2", items[1].ProductID)

	items, err = s.List(ctx, "user-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)
	items, err = s.List(ctx, "user-1", 2, -1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCategoryStore_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore(domain.Category{ID: "c1", Slug: "apparel", Name: "Apparel", SortOrder: 2})

	require.NoError(t, s.Upsert(ctx, &domain.Category{ID: "new", Slug: "apparel", Name: "Clothing", SortOrder: 2}))
	require.NoError(t, s.Upsert(ctx, &domain.Category{ID: "c2", Slug: "kitchen", Name: "Kitchen", SortOrder: 1}))

	cats, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "kitchen", cats[0].Slug)
	assert.Equal(t, "c1", cats[1].ID)
	assert.Equal(t, "Clothing", cats[1].Name)
}
