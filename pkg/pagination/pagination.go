package pagination

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*MaxPageSize within int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Params holds 1-based page parameters.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// DefaultParams returns page 1 with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// Clamp forces page into [1, MaxPage] and page size into [1, MaxPageSize].
// Callers never get to pick an unbounded or empty page.
func Clamp(page, pageSize int) Params {
	return Params{Page: min(MaxPage, max(1, page)), PageSize: ClampLimit(pageSize)}
}

// ClampLimit bounds a take/limit value to [1, MaxPageSize].
func ClampLimit(limit int) int {
	return min(MaxPageSize, max(1, limit))
}

// Offset returns the number of rows to skip for this page. Params that did
// not go through Clamp saturate at math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// FromRequest reads `page` and `page_size` from the query string. Missing
// values take defaults, out-of-range values are clamped and non-integer values
// are reported as errors so the handler can answer 400.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("page must be an integer")
		}
		p.Page = v
	}

	if raw := q.Get("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("page_size must be an integer")
		}
		p.PageSize = v
	}

	return Clamp(p.Page, p.PageSize), nil
}

// LimitFromRequest reads an integer `limit` query parameter, clamped to
// [1, MaxPageSize]. def applies when the parameter is absent.
func LimitFromRequest(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return ClampLimit(def), nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return ClampLimit(v), nil
}

// TotalPages returns ceil(total/pageSize), or 0 for an empty set.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int64, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := TotalPages(totalCount, params.PageSize)

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
