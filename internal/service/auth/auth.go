package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/logger"
	"github.com/campuscore/backend/internal/models"
	"github.com/campuscore/backend/internal/repository"
)

// Revocation reasons recorded on refresh tokens
const (
	ReasonUsedForRefresh = "Used for refresh"
	ReasonUserLogout     = "User logout"
)

type Config struct {
	// Hasher to compare passwords during login
	// Defaults to BcryptHasher if not set
	Hasher PasswordHasher
}

// Service orchestrates login, refresh rotation and logout. Every call is an
// independent unit of work; there is no cross-request state here.
type Service struct {
	issuer  *Issuer
	hasher  PasswordHasher
	storage repository.Storage
	logger  logger.Logger
}

func NewService(cfg Config, issuer *Issuer, storage repository.Storage, l logger.Logger) (*Service, error) {
	if issuer == nil || storage == nil {
		return nil, errors.New("issuer and storage must not be nil")
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		issuer:  issuer,
		hasher:  hasher,
		storage: storage,
		logger:  l,
	}, nil
}

// Login verifies the credentials and returns a fresh token pair. Unknown
// username and wrong password yield the same error so responses never
// confirm which usernames exist.
func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	if username == "" || password == "" {
		return pair, fmt.Errorf("%w: username and password are required", apperrors.ErrInvalidInput)
	}

	account, err := s.storage.Account().GetByUsername(ctx, username)
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return pair, apperrors.ErrInvalidCredentials
	case err != nil:
		s.logger.Error("login failed", "username", username, "error", err)
		return pair, fmt.Errorf("login: %w", err)
	}

	if !account.IsActive {
		return pair, apperrors.ErrAccountInactive
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		return pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.issuePair(ctx, account)
	if err != nil {
		s.logger.Error("login failed", "username", username, "error", err)
		return pair, fmt.Errorf("login: %w", err)
	}

	// Login bookkeeping must not break an otherwise successful login
	if err := s.storage.Account().TouchLastLogin(ctx, account.ID, time.Now()); err != nil {
		s.logger.Warn("failed to record last login", "username", username, "error", err)
	}

	return pair, nil
}

// Refresh rotates the presented token: it is revoked atomically and a new
// pair is minted from the account's current active roles. A second
// presentation of the same string always fails, including the case where a
// concurrent call spent it first.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	var pair models.TokenPair

	if refreshToken == "" {
		return pair, fmt.Errorf("%w: refresh token is required", apperrors.ErrInvalidInput)
	}

	token, err := s.storage.Refresh().GetByToken(ctx, refreshToken)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		return pair, err
	case err != nil:
		s.logger.Error("refresh failed", "error", err)
		return pair, fmt.Errorf("refresh: %w", err)
	}

	if !s.issuer.RefreshTokenUsable(token) {
		if token.IsRevoked {
			return pair, apperrors.ErrRefreshTokenRevoked
		}
		return pair, apperrors.ErrRefreshTokenExpired
	}

	account := *token.Account
	if !account.IsActive {
		return pair, apperrors.ErrAccountInactive
	}

	// Revoke-iff-not-revoked: losing this race to a concurrent refresh is
	// a failed rotation, not a second successful one
	err = s.storage.Refresh().RevokeIfActive(ctx, refreshToken, ReasonUsedForRefresh)
	switch {
	case errors.Is(err, apperrors.ErrRefreshTokenRevoked),
		errors.Is(err, apperrors.ErrRefreshTokenNotFound):
		return pair, apperrors.ErrRefreshTokenRevoked
	case err != nil:
		s.logger.Error("refresh failed", "account_id", account.ID, "error", err)
		return pair, fmt.Errorf("refresh: %w", err)
	}

	pair, err = s.issuePair(ctx, account)
	if err != nil {
		s.logger.Error("refresh failed", "account_id", account.ID, "error", err)
		return pair, fmt.Errorf("refresh: %w", err)
	}

	return pair, nil
}

// Logout revokes the named token. It is idempotent: revoking an already
// revoked or unknown token still reports success.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.storage.Refresh().Revoke(ctx, refreshToken, ReasonUserLogout); err != nil {
		s.logger.Error("logout failed", "error", err)
		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

// RevokeAllSessions revokes every active refresh token of the account, e.g.
// on forced logout or password reset.
func (s *Service) RevokeAllSessions(ctx context.Context, accountID int64, reason string) (int64, error) {
	if accountID <= 0 {
		return 0, fmt.Errorf("%w: account id must be greater than zero", apperrors.ErrInvalidInput)
	}
	if reason == "" {
		reason = ReasonUserLogout
	}

	revoked, err := s.storage.Refresh().RevokeAllForAccount(ctx, accountID, reason)
	if err != nil {
		s.logger.Error("bulk revocation failed", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("revoke all: %w", err)
	}

	return revoked, nil
}

// ActiveSessions lists the account's live refresh tokens for auditing.
func (s *Service) ActiveSessions(ctx context.Context, accountID int64) ([]models.RefreshToken, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: account id must be greater than zero", apperrors.ErrInvalidInput)
	}

	return s.storage.Refresh().ListActiveByAccount(ctx, accountID)
}

// Authenticate extracts and verifies the bearer token of the request.
func (s *Service) Authenticate(ctx context.Context, r *http.Request) (AccessTokenClaims, error) {
	header := r.Header.Get("Authorization")
	value, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || value == "" {
		return AccessTokenClaims{}, apperrors.ErrInvalidCredentials
	}

	return s.issuer.ParseAccessToken(value)
}

// issuePair mints an access token from the account's current active roles
// plus a refresh token, and persists the refresh token. The refresh token
// is only returned once saving succeeded, so a minted-but-unpersisted token
// is never observable as success.
func (s *Service) issuePair(ctx context.Context, account models.Account) (models.TokenPair, error) {
	var pair models.TokenPair

	roles, err := s.storage.RoleAssignment().ActiveRoleNames(ctx, account.ID)
	if err != nil {
		return pair, err
	}

	access, err := s.issuer.MintAccessToken(account, roles)
	if err != nil {
		return pair, err
	}

	refresh, err := s.issuer.MintRefreshToken(account.ID)
	if err != nil {
		return pair, err
	}

	if _, err := s.storage.Refresh().Save(ctx, refresh); err != nil {
		return pair, err
	}

	return models.TokenPair{
		Access:  access,
		Refresh: models.IssuedToken{Value: refresh.Token, ExpiresAt: refresh.ExpiresAt},
	}, nil
}
