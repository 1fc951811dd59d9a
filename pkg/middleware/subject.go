package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

type contextKey string

const subjectKey contextKey = "subject"

// SubjectHeader is set by the gateway to the authenticated user's ID.
const SubjectHeader = "X-User-ID"

// AdminKeyHeader authorizes catalog writes.
const AdminKeyHeader = "X-Admin-Key"

// Subject stores the X-User-ID header, when present, as the request subject.
func Subject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SubjectHeader))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), subjectKey, id)
		ctx = logger.WithSubjectID(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSubject rejects requests without a subject with 401.
func RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SubjectFromContext(r.Context()) == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("missing "+SubjectHeader+" header"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SubjectFromContext returns the subject stored by Subject.
func SubjectFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(subjectKey).(string); ok {
		return id
	}
	return ""
}

// WithSubject returns ctx carrying id as the request subject.
func WithSubject(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectKey, id)
}

// RequireAdminKey guards routes with a shared static key. An empty key
// disables the routes entirely.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httputil.WriteError(w, r, apperrors.Unauthorized("admin key required"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
