package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product kinds.
const (
	KindDigital  = "digital"
	KindPhysical = "physical"
)

// Media kinds.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// DefaultCurrency applies when a product is created without one.
const DefaultCurrency = "USD"

// Media is one entry of a product's ordered gallery.
type Media struct {
	URL  string `json:"url" validate:"required,url"`
	Kind string `json:"kind" validate:"required,oneof=image video"`
}

// Product is a catalog record. Prices are integer minor units.
type Product struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	PriceCents       int64     `json:"price_cents"`
	Currency         string    `json:"currency"`
	ImageURL         string    `json:"image_url,omitempty"`
	CategorySlug     string    `json:"category_slug,omitempty"`
	Featured         bool      `json:"featured"`
	Media            []Media   `json:"media,omitempty"`
	Kind             string    `json:"kind,omitempty"`
	ShippingRequired *bool     `json:"shipping_required,omitempty"`
	WeightGrams      *int      `json:"weight_grams,omitempty"`
	DigitalVersion   string    `json:"digital_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PriceDisplay renders the price for humans, e.g. "USD 19.99".
func (p *Product) PriceDisplay() string {
	return FormatPrice(p.PriceCents, p.Currency)
}

// Recent projects the product onto the lightweight recent-items shape.
func (p *Product) Recent() RecentItem {
	return RecentItem{
		ID:         p.ID,
		Name:       p.Name,
		Slug:       p.Slug,
		PriceCents: p.PriceCents,
		Currency:   p.Currency,
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
	}
}

// RecentItem is the projection returned by the recent-products listing.
type RecentItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	PriceCents int64     `json:"price_cents"`
	Currency   string    `json:"currency"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SortMode selects the primary ordering of a product listing.
type SortMode string

const (
	SortNewest    SortMode = "newest"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
)

// ParseSortMode maps the query-string value onto a SortMode. The empty string
// selects newest.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortNewest:
		return SortNewest, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	default:
		return "", fmt.Errorf("sort must be one of: newest, price_asc, price_desc")
	}
}

// Valid reports whether m is a known sort mode.
func (m SortMode) Valid() bool {
	_, err := ParseSortMode(string(m))
	return err == nil && m != ""
}

// ListParams describes one page of a filtered, sorted product listing.
// Empty Query and Category and a nil Featured never exclude records.
type ListParams struct {
	Query    string
	Category string
	Featured *bool
	Sort     SortMode
	Page     int
	PageSize int
}

// CacheKey is the canonical form of the params tuple. Callers clamp first so
// equivalent requests share a key.
func (p ListParams) CacheKey() string {
	v := url.Values{}
	v.Set("q", p.Query)
	v.Set("category", p.Category)
	if p.Featured != nil {
		v.Set("featured", strconv.FormatBool(*p.Featured))
	}
	v.Set("sort", string(p.Sort))
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("page_size", strconv.Itoa(p.PageSize))
	return "list?" + v.Encode()
}

// ListResult is one page of products plus the count of the whole filtered set.
type ListResult struct {
	Items    []Product `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// CreateProductInput holds the parameters for creating a product. An empty
// slug is derived from the name.
type CreateProductInput struct {
	Slug             string  `json:"slug" validate:"omitempty,slug,max=200"`
	Name             string  `json:"name" validate:"required,min=1,max=255"`
	Description      string  `json:"description" validate:"max=10000"`
	PriceCents       int64   `json:"price_cents" validate:"gte=0"`
	Currency         string  `json:"currency" validate:"omitempty,iso4217"`
	ImageURL         string  `json:"image_url" validate:"omitempty,url"`
	CategorySlug     string  `json:"category_slug" validate:"omitempty,slug"`
	Featured         bool    `json:"featured"`
	Media            []Media `json:"media" validate:"omitempty,dive"`
	Kind             string  `json:"kind" validate:"omitempty,oneof=digital physical"`
	ShippingRequired *bool   `json:"shipping_required"`
	WeightGrams      *int    `json:"weight_grams" validate:"omitempty,gte=0"`
	DigitalVersion   string  `json:"digital_version" validate:"max=64"`
}

// UpdateProductInput is a partial patch; nil fields are left unchanged.
type UpdateProductInput struct {
	Slug             *string  `json:"slug" validate:"omitempty,slug,max=200"`
	Name             *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description      *string  `json:"description" validate:"omitempty,max=10000"`
	PriceCents       *int64   `json:"price_cents" validate:"omitempty,gte=0"`
	Currency         *string  `json:"currency" validate:"omitempty,iso4217"`
	ImageURL         *string  `json:"image_url" validate:"omitempty,url"`
	CategorySlug     *string  `json:"category_slug" validate:"omitempty,slug"`
	Featured         *bool    `json:"featured"`
	Media            *[]Media `json:"media" validate:"omitempty,dive"`
	Kind             *string  `json:"kind" validate:"omitempty,oneof=digital physical"`
	ShippingRequired *bool    `json:"shipping_required"`
	WeightGrams      *int     `json:"weight_grams" validate:"omitempty,gte=0"`
	DigitalVersion   *string  `json:"digital_version" validate:"omitempty,max=64"`
}

// Empty reports whether the patch changes nothing.
func (in *UpdateProductInput) Empty() bool {
	return in.Slug == nil && in.Name == nil && in.Description == nil &&
		in.PriceCents == nil && in.Currency == nil && in.ImageURL == nil &&
		in.CategorySlug == nil && in.Featured == nil && in.Media == nil &&
		in.Kind == nil && in.ShippingRequired == nil && in.WeightGrams == nil &&
		in.DigitalVersion == nil
}

// Apply copies the non-nil fields onto p.
func (in *UpdateProductInput) Apply(p *Product) {
	if in.Slug != nil {
		p.Slug = *in.Slug
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.Currency != nil {
		p.Currency = *in.Currency
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.CategorySlug != nil {
		p.CategorySlug = *in.CategorySlug
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Media != nil {
		p.Media = *in.Media
	}
	if in.Kind != nil {
		p.Kind = *in.Kind
	}
	if in.ShippingRequired != nil {
		p.ShippingRequired = in.ShippingRequired
	}
	if in.WeightGrams != nil {
		p.WeightGrams = in.WeightGrams
	}
	if in.DigitalVersion != nil {
		p.DigitalVersion = *in.DigitalVersion
	}
}

// CatalogStats summarizes the catalog for the admin dashboard.
type CatalogStats struct {
	Total           int64      `json:"total"`
	Featured        int64      `json:"featured"`
	Digital         int64      `json:"digital"`
	Physical        int64      `json:"physical"`
	LatestCreatedAt *time.Time `json:"latest_created_at,omitempty"`
}

var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

// FormatPrice renders integer minor units with the currency's exponent,
// e.g. FormatPrice(1999, "USD") == "USD 19.99".
func FormatPrice(cents int64, currency string) string {
	exp, ok := minorUnits[currency]
	if !ok {
		exp = 2
	}
	amount := decimal.New(cents, -exp)
	return currency + " " + amount.StringFixed(exp)
}
