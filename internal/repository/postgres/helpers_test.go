package postgres

import (
	"encoding/json"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const (
	productID1 = "0b4a5f0e-8e0b-4c7c-9d55-6a1f3f2e9a01"
	productID2 = "0b4a5f0e-8e0b-4c7c-9d55-6a1f3f2e9a02"
)

var productColumnNames = []string{
	"id", "slug", "name", "description", "price_cents", "currency",
	"image_url", "category_slug", "featured", "media", "kind",
	"shipping_required", "weight_grams", "digital_version", "created_at", "updated_at",
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func sampleProduct() domain.Product {
	return domain.Product{
		ID:               productID1,
		Slug:             "classic-t-shirt",
		Name:             "Classic T-Shirt",
		Description:      "Soft cotton tee",
		PriceCents:       1999,
		Currency:         "USD",
		ImageURL:         "https://cdn.example.com/tee.jpg",
		CategorySlug:     "apparel",
		Featured:         true,
		Media:            []domain.Media{{URL: "https://cdn.example.com/tee-2.jpg", Kind: domain.MediaImage}},
		Kind:             domain.KindPhysical,
		ShippingRequired: boolPtr(true),
		WeightGrams:      intPtr(180),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func productRow(p domain.Product) []any {
	var media []byte
	if len(p.Media) > 0 {
		media, _ = json.Marshal(p.Media)
	}
	return []any{
		p.ID, p.Slug, p.Name, p.Description, p.PriceCents, p.Currency,
		p.ImageURL, p.CategorySlug, p.Featured, media, p.Kind,
		p.ShippingRequired, p.WeightGrams, p.DigitalVersion, p.CreatedAt, p.UpdatedAt,
	}
}
