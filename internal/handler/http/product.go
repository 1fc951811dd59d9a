package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

const (
	defaultFeaturedLimit = 8
	defaultRecentLimit   = 10
	maxBodyBytes         = 1 << 20
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// productResponse adds the formatted price to a product.
type productResponse struct {
	domain.Product
	PriceDisplay string `json:"price_display"`
}

func toResponse(p *domain.Product) productResponse {
	return productResponse{Product: *p, PriceDisplay: p.PriceDisplay()}
}

func toResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toResponse(&products[i]))
	}
	return out
}

// decodeBody reads a JSON body into dst and validates it. Malformed JSON is
// reported as INVALID_INPUT, failed validation as VALIDATION_ERROR.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := validator.DecodeAndValidate(r, dst)
	if err == nil {
		return nil
	}
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return err
	}
	return apperrors.InvalidInput("invalid request body: " + err.Error())
}

// ListProducts handles GET /api/v1/products
//
//	?q=&category=&featured=&sort=newest|price_asc|price_desc&page=&page_size=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteInvalidParameter(w, r, err.Error())
		return
	}

	q := r.URL.Query()
	sort, err := domain.ParseSortMode(q.Get("sort"))
	if err != nil {
		httputil.WriteInvalidParameter(w, r, err.Error())
		return
	}

	params := domain.ListParams{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Sort:     sort,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteInvalidParameter(w, r, "featured must be true or false")
			return
		}
		params.Featured = &featured
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(
		toResponses(result.Items),
		result.Total,
		pagination.Params{Page: result.Page, PageSize: result.PageSize},
	))
}

// ListFeatured handles GET /api/v1/products/featured?limit=
func (h *ProductHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.LimitFromRequest(r, defaultFeaturedLimit)
	if err != nil {
		httputil.WriteInvalidParameter(w, r, err.Error())
		return
	}

	products, err := h.service.ListFeatured(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toResponses(products))
}

// ListRecent handles GET /api/v1/products/recent?limit=
func (h *ProductHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.LimitFromRequest(r, defaultRecentLimit)
	if err != nil {
		httputil.WriteInvalidParameter(w, r, err.Error())
		return
	}

	items, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, items)
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
// A UUID is looked up by ID, anything else by slug.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	var (
		product *domain.Product
		err     error
	)
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = h.service.GetByID(r.Context(), idOrSlug)
	} else {
		product, err = h.service.GetBySlug(r.Context(), idOrSlug)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, toResponse(product))
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateProductInput
	if err := decodeBody(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, toResponse(product))
}

// UpdateProduct handles PATCH /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var input domain.UpdateProductInput
	if err := decodeBody(w, r, &input); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, toResponse(product))
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Stats handles GET /api/v1/admin/stats
func (h *ProductHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, stats)
}
