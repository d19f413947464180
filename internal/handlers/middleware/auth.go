package middleware

import (
	"context"
	"net/http"

	"github.com/campuscore/backend/internal/handlers/authctx"
	"github.com/campuscore/backend/internal/handlers/render"
	"github.com/campuscore/backend/internal/service/auth"
)

type authService interface {
	Authenticate(ctx context.Context, r *http.Request) (auth.AccessTokenClaims, error)
}

// Auth verifies the bearer token and puts its claims on the request context
func Auth(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := as.Authenticate(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := authctx.New(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token does not carry the role claim.
// Claims are a mint-time snapshot: a role revoked after minting keeps
// working until the access token expires.
func RequireRole(roleName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := authctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !claims.HasRole(roleName) {
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
