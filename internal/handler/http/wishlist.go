package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/wishlist"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
)

// WishlistHandler serves the subject's wishlist. Flags go through the
// optimistic Sync; direct writes go to the membership store.
type WishlistHandler struct {
	sync    *wishlist.Sync
	members repository.MembershipStore
	lister  repository.WishlistRepository
	logger  *slog.Logger
}

// NewWishlistHandler creates a wishlist handler. lister may be nil when the
// membership store cannot enumerate items.
func NewWishlistHandler(sync *wishlist.Sync, members repository.MembershipStore, lister repository.WishlistRepository, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{sync: sync, members: members, lister: lister, logger: logger}
}

func storeError(op string, err error) error {
	if apperrors.IsDomain(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, apperrors.StoreUnavailable(err))
}

// ListWishlist handles GET /api/v1/wishlist?page=&page_size=
func (h *WishlistHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteInvalidParameter(w, r, err.Error())
		return
	}
	subject := middleware.SubjectFromContext(r.Context())

	total, err := h.lister.Count(r.Context(), subject)
	if err != nil {
		httputil.WriteError(w, r, storeError("count wishlist", err), h.logger)
		return
	}
	items, err := h.lister.List(r.Context(), subject, page.PageSize, page.Offset())
	if err != nil {
		httputil.WriteError(w, r, storeError("list wishlist", err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(items, total, page))
}

// GetMembership handles GET /api/v1/wishlist/{productId}
func (h *WishlistHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())
	m, err := h.sync.Status(r.Context(), subject, chi.URLParam(r, "productId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// Toggle handles POST /api/v1/wishlist/{productId}/toggle
//
// The flipped value is answered with 202 and pending=true. With ?wait=true the
// handler waits for the settlement: 200 with the confirmed value, or 502 with
// the reverted value in data when the store call failed.
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	wait := false
	if v := r.URL.Query().Get("wait"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteInvalidParameter(w, r, "wait must be true or false")
			return
		}
		wait = parsed
	}

	ctx := r.Context()
	subject := middleware.SubjectFromContext(ctx)
	productID := chi.URLParam(r, "productId")

	shown, done, err := h.sync.Toggle(ctx, subject, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !wait {
		httputil.WriteData(w, http.StatusAccepted, domain.Membership{ProductID: productID, Wishlisted: shown, Pending: true})
		return
	}

	var st wishlist.Settlement
	select {
	case st = <-done:
	case <-ctx.Done():
		return
	}

	if !st.Applied {
		// A later toggle owns the key; report what is shown now.
		m, err := h.sync.Status(ctx, subject, productID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteData(w, http.StatusOK, m)
		return
	}

	m := domain.Membership{ProductID: productID, Wishlisted: st.Value}
	if st.Err != nil {
		httputil.WriteErrorWithData(w, r, st.Err, m, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// Add handles PUT /api/v1/wishlist/{productId}
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, true)
}

// Remove handles DELETE /api/v1/wishlist/{productId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, false)
}

func (h *WishlistHandler) set(w http.ResponseWriter, r *http.Request, value bool) {
	ctx := r.Context()
	subject := middleware.SubjectFromContext(ctx)
	productID := chi.URLParam(r, "productId")

	got, err := h.members.Set(ctx, subject, productID, value)
	if err != nil {
		httputil.WriteError(w, r, storeError("set wishlist membership", err), h.logger)
		return
	}
	if err := h.sync.Invalidate(ctx, subject, productID); err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate wishlist cache",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	httputil.WriteData(w, http.StatusOK, domain.Membership{ProductID: productID, Wishlisted: got})
}

// InvalidateCache handles DELETE /api/v1/wishlist/cache
func (h *WishlistHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	subject := middleware.SubjectFromContext(r.Context())
	if err := h.sync.InvalidateSubject(r.Context(), subject); err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
