package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/handlers/authctx"
	"github.com/campuscore/backend/internal/handlers/render"
	"github.com/campuscore/backend/internal/models"
)

type authService interface {
	// Login with username and password
	// Unknown username and wrong password both yield apperrors.ErrInvalidCredentials
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Rotate the refresh token: revoke it and mint a new pair
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)

	// Idempotently revoke the refresh token
	Logout(ctx context.Context, refreshToken string) error

	// Live refresh sessions of the account
	ActiveSessions(ctx context.Context, accountID int64) ([]models.RefreshToken, error)
}

type AuthHandler struct {
	service authService
}

func NewAuth(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Handler routes the public auth endpoints. The sessions endpoint is mounted
// separately behind the auth middleware by the router.
func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)
	mux.HandleFunc("POST /logout", h.logout)

	return mux
}

type tokenPairResponse struct {
	AccessToken         string    `json:"accessToken"`
	RefreshToken        string    `json:"refreshToken"`
	AccessTokenExpires  time.Time `json:"accessTokenExpires"`
	RefreshTokenExpires time.Time `json:"refreshTokenExpires"`
}

func toTokenPairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:         pair.Access.Value,
		RefreshToken:        pair.Refresh.Value,
		AccessTokenExpires:  pair.Access.ExpiresAt,
		RefreshTokenExpires: pair.Refresh.ExpiresAt,
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.service.Login(r.Context(), data.Username, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			render.ServiceError(w, "Username and password are required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrAccountInactive):
			render.ServiceError(w, "Account is deactivated", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "An error occurred during login", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toTokenPairResponse(pair))
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.service.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidInput):
			render.ServiceError(w, "Refresh token is required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound),
			errors.Is(err, apperrors.ErrRefreshTokenExpired),
			errors.Is(err, apperrors.ErrRefreshTokenRevoked),
			errors.Is(err, apperrors.ErrAccountInactive):
			render.ServiceError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "An error occurred during token refresh", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, toTokenPairResponse(pair))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutRequest struct {
		RefreshToken string `json:"refreshToken"`
	}
	type LogoutResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LogoutRequest](w, r)
	if err != nil {
		return
	}

	if err := h.service.Logout(r.Context(), data.RefreshToken); err != nil {
		render.ServiceError(w, "An error occurred during logout", http.StatusInternalServerError)
		return
	}

	render.JSON(w, LogoutResponse{Message: "Logged out successfully"})
}

// Sessions lists the caller's live refresh sessions. Token values are not
// echoed back; ids and timestamps are enough for auditing.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	type SessionResponse struct {
		ID        int64     `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
		ExpiresAt time.Time `json:"expiresAt"`
	}

	claims, ok := authctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tokens, err := h.service.ActiveSessions(r.Context(), claims.AccountID)
	if err != nil {
		render.ServiceError(w, "An error occurred while listing sessions", http.StatusInternalServerError)
		return
	}

	response := make([]SessionResponse, 0, len(tokens))
	for _, t := range tokens {
		response = append(response, SessionResponse{ID: t.ID, CreatedAt: t.CreatedAt, ExpiresAt: t.ExpiresAt})
	}

	render.JSON(w, response)
}
