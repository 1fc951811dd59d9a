package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/slug"
)

// seedNamespace keeps seeded IDs stable across runs.
var seedNamespace = uuid.MustParse("6f1c2d3e-4b5a-5c6d-8e7f-0a1b2c3d4e5f")

// seedEpoch is the created_at of the newest seeded product; each following
// product is one hour older.
var seedEpoch = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func seedID(kind, key string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+key)).String()
}

type categoryDef struct {
	name string
	slug string
}

var categoryDefs = []categoryDef{
	{name: "Apparel", slug: "apparel"},
	{name: "Home & Kitchen", slug: "home-kitchen"},
	{name: "Outdoors", slug: "outdoors"},
	{name: "Books", slug: "books"},
	{name: "Digital Goods", slug: "digital-goods"},
}

type productDef struct {
	name        string
	description string
	priceCents  int64
	category    string
	featured    bool
	kind        string
	weightGrams int
	version     string
}

var productDefs = []productDef{
	{name: "Classic Cotton Tee", description: "Heavyweight cotton, relaxed fit.", priceCents: 1999, category: "apparel", featured: true, kind: domain.KindPhysical, weightGrams: 220},
	{name: "Merino Crew Socks", description: "Three pairs of mid-weight merino.", priceCents: 2400, category: "apparel", kind: domain.KindPhysical, weightGrams: 150},
	{name: "Waxed Canvas Jacket", description: "Water resistant with a corduroy collar.", priceCents: 18900, category: "apparel", featured: true, kind: domain.KindPhysical, weightGrams: 1400},
	{name: "Enamel Camp Mug", description: "12 oz speckled enamel.", priceCents: 1400, category: "home-kitchen", kind: domain.KindPhysical, weightGrams: 300},
	{name: "Cast Iron Skillet", description: "Pre-seasoned 10 inch skillet.", priceCents: 4500, category: "home-kitchen", featured: true, kind: domain.KindPhysical, weightGrams: 2300},
	{name: "Linen Tea Towels", description: "Set of two stonewashed towels.", priceCents: 2200, category: "home-kitchen", kind: domain.KindPhysical, weightGrams: 200},
	{name: "Ultralight Tarp", description: "Silnylon tarp with guylines.", priceCents: 12900, category: "outdoors", kind: domain.KindPhysical, weightGrams: 480},
	{name: "Trail Headlamp", description: "Rechargeable, 400 lumens.", priceCents: 3900, category: "outdoors", featured: true, kind: domain.KindPhysical, weightGrams: 90},
	{name: "Field Notes on Birds", description: "A pocket guide to common songbirds.", priceCents: 1599, category: "books", kind: domain.KindPhysical, weightGrams: 310},
	{name: "The Bread Book", description: "Sourdough from starter to crumb.", priceCents: 2899, category: "books", kind: domain.KindPhysical, weightGrams: 780},
	{name: "Trail Maps Bundle", description: "Printable topographic maps, regional set.", priceCents: 900, category: "digital-goods", featured: true, kind: domain.KindDigital, version: "2026.1"},
	{name: "Sourdough Video Course", description: "Six lessons, lifetime access.", priceCents: 4900, category: "digital-goods", kind: domain.KindDigital, version: "v2"},
}

var (
	generatedAdjectives = []string{"Everyday", "Heritage", "Compact", "Weekend", "Studio", "Coastal", "Alpine", "Urban"}
	generatedNouns      = []string{"Tote", "Blanket", "Bottle", "Notebook", "Cap", "Planter", "Lantern", "Scarf", "Apron"}
)

// catalog returns the seed categories and products, followed by extra
// generated products. Everything is derived from its position so two runs
// produce identical rows.
func catalog(extra int) ([]domain.Category, []domain.Product) {
	categories := make([]domain.Category, 0, len(categoryDefs))
	for i, c := range categoryDefs {
		categories = append(categories, domain.Category{
			ID:        seedID("category", c.slug),
			Slug:      c.slug,
			Name:      c.name,
			SortOrder: i + 1,
			CreatedAt: seedEpoch,
		})
	}

	products := make([]domain.Product, 0, len(productDefs)+extra)
	for _, d := range productDefs {
		products = append(products, d.product(len(products)))
	}
	for i := 0; i < extra; i++ {
		adj := generatedAdjectives[i%len(generatedAdjectives)]
		noun := generatedNouns[(i/len(generatedAdjectives))%len(generatedNouns)]
		category := categoryDefs[i%(len(categoryDefs)-1)].slug
		d := productDef{
			name:        fmt.Sprintf("%s %s No. %d", adj, noun, i+1),
			description: fmt.Sprintf("%s %s from the generated range.", adj, noun),
			priceCents:  int64(500 + (i*137)%20000),
			category:    category,
			featured:    i%17 == 0,
			kind:        domain.KindPhysical,
			weightGrams: 100 + (i*53)%2000,
		}
		products = append(products, d.product(len(products)))
	}
	return categories, products
}

func (d productDef) product(index int) domain.Product {
	productSlug := slug.Generate(d.name)
	created := seedEpoch.Add(-time.Duration(index) * time.Hour)

	p := domain.Product{
		ID:           seedID("product", productSlug),
		Slug:         productSlug,
		Name:         d.name,
		Description:  d.description,
		PriceCents:   d.priceCents,
		Currency:     domain.DefaultCurrency,
		ImageURL:     "https://images.storefront.local/products/" + productSlug + ".jpg",
		CategorySlug: d.category,
		Featured:     d.featured,
		Kind:         d.kind,
		Media: []domain.Media{
			{URL: "https://images.storefront.local/products/" + productSlug + ".jpg", Kind: domain.MediaImage},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	switch d.kind {
	case domain.KindDigital:
		shipping := false
		p.ShippingRequired = &shipping
		p.DigitalVersion = d.version
	default:
		shipping := true
		weight := d.weightGrams
		p.ShippingRequired = &shipping
		p.WeightGrams = &weight
	}
	return p
}
