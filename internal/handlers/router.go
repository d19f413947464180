package handlers

import (
	"context"
	"net/http"

	"github.com/campuscore/backend/internal/handlers/middleware"
	"github.com/campuscore/backend/internal/logger"
	"github.com/campuscore/backend/internal/models"
	"github.com/campuscore/backend/internal/service/auth"
)

// AuthService is what the router needs from the auth layer: the endpoint
// operations plus bearer-token verification for the middleware.
type AuthService interface {
	authService
	Authenticate(ctx context.Context, r *http.Request) (auth.AccessTokenClaims, error)
}

// NewRouter wires the HTTP surface. Auth endpoints are public except the
// sessions listing; role administration requires an Admin bearer token.
func NewRouter(as AuthService, us userRoleService, l logger.Logger) http.Handler {
	authHandler := NewAuth(as)
	userRoleHandler := NewUserRole(us)

	requireAuth := middleware.Auth(as)
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", http.StripPrefix("/api/auth", authHandler.Handler()))
	mux.Handle("GET /api/auth/sessions", chain(
		http.HandlerFunc(authHandler.Sessions),
		requireAuth,
	))
	mux.Handle("/api/user-roles/", http.StripPrefix("/api/user-roles", chain(
		userRoleHandler.Handler(),
		requireAuth,
		requireAdmin,
	)))

	return chain(mux, middleware.Logger(l))
}

// chain applies middlewares so the first listed runs outermost
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
