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

type AccountRepo struct {
	db DBTX
}

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (username, password_hash)
VALUES ($1, $2)
RETURNING id, username, password_hash, is_active, created_at, last_login_at
`

func (r *AccountRepo) Create(ctx context.Context, username string, passwordHash string) (models.Account, error) {
	rows, _ := r.db.Query(ctx, createAccount, username, passwordHash)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return account, apperrors.ErrAccountExists
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccountByID = `-- name: GetAccountByID
SELECT id, username, password_hash, is_active, created_at, last_login_at
FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (models.Account, error) {
	rows, _ := r.db.Query(ctx, getAccountByID, id)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const getAccountByUsername = `-- name: GetAccountByUsername
SELECT id, username, password_hash, is_active, created_at, last_login_at
FROM accounts
WHERE username = $1
`

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (models.Account, error) {
	rows, _ := r.db.Query(ctx, getAccountByUsername, username)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const touchLastLogin = `-- name: TouchLastLogin
UPDATE accounts
SET last_login_at = $2
WHERE id = $1
`

func (r *AccountRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, touchLastLogin, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

const setAccountActive = `-- name: SetAccountActive
UPDATE accounts
SET is_active = $2
WHERE id = $1
`

func (r *AccountRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, setAccountActive, id, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsActive, &a.CreatedAt, &a.LastLoginAt)
	return a, err
}
