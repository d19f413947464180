package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campuscore/backend/internal/models"
)

const (
	defaultSigningMethod = "HS256"

	// Symmetric signing keys shorter than this are rejected at startup
	minSecretKeyLen = 32

	// Refresh tokens carry 32 bytes of entropy, hex encoded
	refreshTokenBytes = 32
)

// AccessTokenClaims are the claims embedded in every access token: identity
// plus a snapshot of the active role names at mint time.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	AccountID int64    `json:"uid"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// HasRole reports whether the role name was active when the token was minted.
func (c AccessTokenClaims) HasRole(name string) bool {
	return slices.Contains(c.Roles, name)
}

// IssuerConfig is required startup configuration. Every field except Alg
// must be set; NewIssuer fails otherwise.
type IssuerConfig struct {
	// Secret key to sign access tokens, at least 32 bytes
	SecretKey string

	// iss and aud claims, verified on parse
	Issuer   string
	Audience string

	// Access and refresh token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// JWT MAC algorithm, HS256 if not set
	Alg string
}

func (c IssuerConfig) validate() error {
	if c.SecretKey == "" {
		return errors.New("signing secret is not configured")
	}
	if len(c.SecretKey) < minSecretKeyLen {
		return fmt.Errorf("signing secret must be at least %d bytes long", minSecretKeyLen)
	}
	if c.Issuer == "" {
		return errors.New("token issuer is not configured")
	}
	if c.Audience == "" {
		return errors.New("token audience is not configured")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("access token lifetime must be greater than zero")
	}
	if c.RefreshTokenTTL <= 0 {
		return errors.New("refresh token lifetime must be greater than zero")
	}
	return nil
}

// Issuer mints access and refresh token material. It holds immutable
// configuration only and persists nothing itself.
type Issuer struct {
	key        string
	issuer     string
	audience   string
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer validates the configuration and fails fast: a partially usable
// issuer must never exist.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("token issuer config: %w", err)
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("token issuer config: unknown signing method %q", cfg.Alg)
	}

	return &Issuer{
		key:        cfg.SecretKey,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		alg:        alg,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// MintAccessToken builds a signed token with identity claims and one role
// entry per active role. The fresh jti keeps two mints for the same account
// in the same second from being bit-identical.
func (i *Issuer) MintAccessToken(account models.Account, activeRoles []string) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(i.accessTTL)

	token := jwt.NewWithClaims(
		i.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   strconv.FormatInt(account.ID, 10),
				Issuer:    i.issuer,
				Audience:  jwt.ClaimStrings{i.audience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			AccountID: account.ID,
			Username:  account.Username,
			Roles:     activeRoles,
		},
	)

	signed, err := token.SignedString([]byte(i.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// MintRefreshToken generates an unpersisted refresh token with a random
// opaque value. Saving it is the caller's job.
func (i *Issuer) MintRefreshToken(accountID int64) (models.RefreshToken, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return models.RefreshToken{}, fmt.Errorf("error while generating refresh token. Err: %w", err)
	}

	now := time.Now().Truncate(time.Second)
	return models.RefreshToken{
		AccountID: accountID,
		Token:     hex.EncodeToString(b),
		CreatedAt: now,
		ExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// AccessTokenExpiry reports when a token minted now would expire, so
// callers can answer without re-deriving it from the token itself.
func (i *Issuer) AccessTokenExpiry() time.Time {
	return time.Now().Truncate(time.Second).Add(i.accessTTL)
}

// RefreshTokenUsable is a pure predicate over the token's own fields: not
// revoked and not yet expired. It never queries storage.
func (i *Issuer) RefreshTokenUsable(token models.RefreshToken) bool {
	return !token.IsRevoked && token.ExpiresAt.After(time.Now())
}

// ParseAccessToken verifies signature, algorithm, issuer and audience and
// returns the embedded claims.
func (i *Issuer) ParseAccessToken(tokenString string) (AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(i.key), nil },
		jwt.WithValidMethods([]string{i.alg.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
	)
	if err != nil {
		return AccessTokenClaims{}, fmt.Errorf("error while parsing or validating token. Err: %w", err)
	}

	return *claims, nil
}
