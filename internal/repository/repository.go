package repository

import (
	"context"
	"time"

	"github.com/campuscore/backend/internal/models"
)

// Account repository interface
type AccountRepo interface {
	// Create account with already hashed password
	// If username is taken must return apperrors.ErrAccountExists
	Create(ctx context.Context, username string, passwordHash string) (models.Account, error)

	// Get account by id or username
	// If not found must return apperrors.ErrAccountNotFound
	GetByID(ctx context.Context, id int64) (models.Account, error)
	GetByUsername(ctx context.Context, username string) (models.Account, error)

	// Login bookkeeping
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	// Soft deactivation; accounts are never deleted by this subsystem
	SetActive(ctx context.Context, id int64, active bool) error
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token
	// Token strings are unique at the store level: inserting a duplicate
	// must return apperrors.ErrDuplicateToken, never overwrite
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Exact-match lookup including the owning account
	// If not found must return apperrors.ErrRefreshTokenNotFound
	GetByToken(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Tokens of the account that are not revoked and not expired
	ListActiveByAccount(ctx context.Context, accountID int64) ([]models.RefreshToken, error)

	// Idempotent revocation: revoking an already revoked or unknown
	// token is a no-op
	Revoke(ctx context.Context, tokenString string, reason string) error

	// Conditional revocation used for rotation
	// Must return apperrors.ErrRefreshTokenRevoked if the token was
	// already revoked (e.g. by a concurrent refresh) and must not
	// overwrite the original reason or timestamp
	RevokeIfActive(ctx context.Context, tokenString string, reason string) error

	// Revoke every currently active token of the account in one statement
	// Returns the number of tokens revoked
	RevokeAllForAccount(ctx context.Context, accountID int64, reason string) (int64, error)
}

// RoleAssignment repository interface
type RoleAssignmentRepo interface {
	// Reactivate-or-insert under the (account_id, role_id) unique key
	// Must never create a second row for the same pair
	Assign(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error)

	// Set is_active=false on the existing row
	// If no row exists must return apperrors.ErrRoleNotAssigned
	Deactivate(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error)

	// Single row for the pair regardless of the active flag
	GetByAccountAndRole(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error)

	// Active assignments only
	HasRole(ctx context.Context, accountID int64, roleID int64) (bool, error)
	HasRoleNamed(ctx context.Context, accountID int64, roleName string) (bool, error)
	ActiveRoleNames(ctx context.Context, accountID int64) ([]string, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.RoleAssignment, error)
	ListByRole(ctx context.Context, roleID int64) ([]models.RoleAssignment, error)
}

// Storage aggregates the repositories over one connection or transaction
type Storage interface {
	Account() AccountRepo
	Refresh() RefreshTokenRepo
	RoleAssignment() RoleAssignmentRepo

	// Run fn with a Storage bound to a single transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
