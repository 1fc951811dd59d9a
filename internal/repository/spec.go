package repository

import (
	"cmp"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
)

// FilterSpec is a conjunction of optional predicates. A zero-valued field is
// absent and never excludes a record.
type FilterSpec struct {
	// NameContains is a case-insensitive substring of the product name.
	NameContains string
	CategorySlug string
	Featured     *bool
	Kind         string
}

// Matches evaluates the filter against p in memory.
func (f FilterSpec) Matches(p *domain.Product) bool {
	if f.NameContains != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.CategorySlug != "" && p.CategorySlug != f.CategorySlug {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	return true
}

// Field is a sortable product column.
type Field string

const (
	FieldPrice     Field = "price_cents"
	FieldCreatedAt Field = "created_at"
	FieldID        Field = "id"
)

// OrderTerm is one sort key.
type OrderTerm struct {
	Field Field
	Desc  bool
}

// OrderSpec is a lexicographic list of sort keys.
type OrderSpec []OrderTerm

// OrderFor returns the total order for a sort mode: the primary key followed
// by created_at DESC, id ASC so that ties never depend on storage order.
func OrderFor(mode domain.SortMode) OrderSpec {
	tail := OrderSpec{{Field: FieldCreatedAt, Desc: true}, {Field: FieldID}}
	switch mode {
	case domain.SortPriceAsc:
		return append(OrderSpec{{Field: FieldPrice}}, tail...)
	case domain.SortPriceDesc:
		return append(OrderSpec{{Field: FieldPrice, Desc: true}}, tail...)
	default:
		return tail
	}
}

// Compare orders a before b under o, returning -1, 0 or 1.
func (o OrderSpec) Compare(a, b *domain.Product) int {
	for _, term := range o {
		var c int
		switch term.Field {
		case FieldPrice:
			c = cmp.Compare(a.PriceCents, b.PriceCents)
		case FieldCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case FieldID:
			c = strings.Compare(a.ID, b.ID)
		}
		if term.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
