package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// BearerSubject accepts an HMAC-signed JWT in the Authorization header as an
// alternative to X-User-ID. A valid token's user_id (or sub) claim becomes the
// request subject and replaces any header value; an invalid token is rejected
// with 401. Requests without the header pass through. An empty secret
// disables token handling.
func BearerSubject(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	if secret == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), log)
				return
			}

			claims := jwt.MapClaims{}
			if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
				return key, nil
			}); err != nil {
				log.WarnContext(r.Context(), "invalid bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), log)
				return
			}

			subject, _ := claims["user_id"].(string)
			if subject == "" {
				subject, _ = claims.GetSubject()
			}
			if subject == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("token has no subject"), log)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, subject)
			ctx = logger.WithSubjectID(ctx, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
