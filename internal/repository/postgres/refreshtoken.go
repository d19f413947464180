package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/models"
)

type RefreshTokenRepo struct {
	db DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (account_id, token, created_at, expires_at, is_revoked, revoked_at, revoked_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, saveToken,
		token.AccountID, token.Token, token.CreatedAt, token.ExpiresAt,
		token.IsRevoked, token.RevokedAt, nullIfEmpty(token.RevokedReason),
	)
	id, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return token, apperrors.ErrDuplicateToken
		}

		return token, fmt.Errorf("db error: %w", err)
	}

	token.ID = id
	return token, nil
}

const getToken = `-- name: GetRefreshToken
SELECT t.id, t.account_id, t.created_at, t.expires_at, t.is_revoked, t.revoked_at, t.revoked_reason,
       a.id, a.username, a.password_hash, a.is_active, a.created_at, a.last_login_at
FROM refresh_tokens t
JOIN accounts a ON a.id = t.account_id
WHERE t.token = $1
`

// GetByToken returns the token with its owning account, so a rotation does
// not need a second round trip. Revoked and expired tokens are returned too.
func (r *RefreshTokenRepo) GetByToken(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, getToken, tokenString)
	token, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		t := models.RefreshToken{Token: tokenString, Account: &models.Account{}}
		var reason *string
		err := row.Scan(
			&t.ID, &t.AccountID, &t.CreatedAt, &t.ExpiresAt, &t.IsRevoked, &t.RevokedAt, &reason,
			&t.Account.ID, &t.Account.Username, &t.Account.PasswordHash,
			&t.Account.IsActive, &t.Account.CreatedAt, &t.Account.LastLoginAt,
		)
		if reason != nil {
			t.RevokedReason = *reason
		}
		return t, err
	})

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, apperrors.ErrRefreshTokenNotFound
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const listActiveTokens = `-- name: ListActiveRefreshTokens
SELECT id, account_id, token, created_at, expires_at
FROM refresh_tokens
WHERE account_id = $1 AND NOT is_revoked AND expires_at > $2
ORDER BY created_at
`

func (r *RefreshTokenRepo) ListActiveByAccount(ctx context.Context, accountID int64) ([]models.RefreshToken, error) {
	rows, _ := r.db.Query(ctx, listActiveTokens, accountID, time.Now())
	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RefreshToken, error) {
		var t models.RefreshToken
		err := row.Scan(&t.ID, &t.AccountID, &t.Token, &t.CreatedAt, &t.ExpiresAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return tokens, nil
}

const revokeToken = `-- name: RevokeRefreshToken
UPDATE refresh_tokens
SET is_revoked = TRUE,
    revoked_reason = CASE WHEN revoked_at IS NULL THEN $3 ELSE revoked_reason END,
    revoked_at = COALESCE(revoked_at, $2)
WHERE token = $1
`

// Revoke is idempotent: already revoked tokens keep their original reason
// and timestamp, unknown tokens are a no-op.
func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string, reason string) error {
	_, err := r.db.Exec(ctx, revokeToken, tokenString, time.Now(), reason)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const revokeTokenIfActive = `-- name: RevokeRefreshTokenIfActive
UPDATE refresh_tokens
SET is_revoked = TRUE,
    revoked_reason = CASE WHEN revoked_at IS NULL THEN $3 ELSE revoked_reason END,
    revoked_at = COALESCE(revoked_at, $2)
WHERE token = $1
RETURNING revoked_at
`

// RevokeIfActive makes rotation single use. The COALESCE keeps the first
// revocation: if the returned timestamp is not ours a concurrent caller
// already spent the token and the rotation must fail.
func (r *RefreshTokenRepo) RevokeIfActive(ctx context.Context, tokenString string, reason string) error {
	// timestamptz keeps microseconds, so the value must round trip exactly
	now := time.Now().Truncate(time.Microsecond)
	rows, _ := r.db.Query(ctx, revokeTokenIfActive, tokenString, now, reason)
	revokedAt, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	switch {
	case err == nil && revokedAt.Equal(now):
		return nil
	case err == nil: // revoked_at kept an earlier value, token already spent
		return apperrors.ErrRefreshTokenRevoked
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrRefreshTokenNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const revokeAllTokens = `-- name: RevokeAllRefreshTokens
UPDATE refresh_tokens
SET is_revoked = TRUE, revoked_at = $2, revoked_reason = $3
WHERE account_id = $1 AND NOT is_revoked AND expires_at > $2
`

func (r *RefreshTokenRepo) RevokeAllForAccount(ctx context.Context, accountID int64, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx, revokeAllTokens, accountID, time.Now(), reason)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
