package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/models"
)

type RoleAssignmentRepo struct {
	db DBTX
}

const assignRole = `-- name: AssignRole
INSERT INTO role_assignments (account_id, role_id, is_active)
VALUES ($1, $2, TRUE)
ON CONFLICT (account_id, role_id) DO UPDATE SET is_active = TRUE
RETURNING id, account_id, role_id, is_active
`

// Assign reactivates the existing row or inserts a new one. The upsert runs
// under the (account_id, role_id) unique key, so concurrent assigns for the
// same pair cannot produce duplicate rows.
func (r *RoleAssignmentRepo) Assign(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error) {
	rows, _ := r.db.Query(ctx, assignRole, accountID, roleID)
	assignment, err := pgx.CollectOneRow(rows, rowToAssignment)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			if strings.Contains(pgErr.ConstraintName, "role_id") {
				return assignment, apperrors.ErrRoleNotFound
			}
			return assignment, apperrors.ErrAccountNotFound
		}

		return assignment, fmt.Errorf("db error: %w", err)
	}

	return assignment, nil
}

const deactivateRole = `-- name: DeactivateRole
UPDATE role_assignments
SET is_active = FALSE
WHERE account_id = $1 AND role_id = $2
RETURNING id, account_id, role_id, is_active
`

func (r *RoleAssignmentRepo) Deactivate(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error) {
	rows, _ := r.db.Query(ctx, deactivateRole, accountID, roleID)
	assignment, err := pgx.CollectOneRow(rows, rowToAssignment)

	switch {
	case err == nil:
		return assignment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return assignment, apperrors.ErrRoleNotAssigned
	default:
		return assignment, fmt.Errorf("db error: %w", err)
	}
}

const getAssignment = `-- name: GetAssignment
SELECT ra.id, ra.account_id, ra.role_id, ra.is_active, a.username, r.name
FROM role_assignments ra
JOIN accounts a ON a.id = ra.account_id
JOIN roles r ON r.id = ra.role_id
WHERE ra.account_id = $1 AND ra.role_id = $2
`

// GetByAccountAndRole returns the row for the pair whether active or not.
func (r *RoleAssignmentRepo) GetByAccountAndRole(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error) {
	rows, _ := r.db.Query(ctx, getAssignment, accountID, roleID)
	assignment, err := pgx.CollectOneRow(rows, rowToJoinedAssignment)

	switch {
	case err == nil:
		return assignment, nil
	case errors.Is(err, pgx.ErrNoRows):
		return assignment, apperrors.ErrRoleNotAssigned
	default:
		return assignment, fmt.Errorf("db error: %w", err)
	}
}

const hasRole = `-- name: HasRole
SELECT EXISTS (
    SELECT 1 FROM role_assignments
    WHERE account_id = $1 AND role_id = $2 AND is_active
)
`

func (r *RoleAssignmentRepo) HasRole(ctx context.Context, accountID int64, roleID int64) (bool, error) {
	rows, _ := r.db.Query(ctx, hasRole, accountID, roleID)
	found, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

const hasRoleNamed = `-- name: HasRoleNamed
SELECT EXISTS (
    SELECT 1 FROM role_assignments ra
    JOIN roles r ON r.id = ra.role_id
    WHERE ra.account_id = $1 AND r.name = $2 AND ra.is_active
)
`

func (r *RoleAssignmentRepo) HasRoleNamed(ctx context.Context, accountID int64, roleName string) (bool, error) {
	rows, _ := r.db.Query(ctx, hasRoleNamed, accountID, roleName)
	found, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

const activeRoleNames = `-- name: ActiveRoleNames
SELECT r.name
FROM role_assignments ra
JOIN roles r ON r.id = ra.role_id
WHERE ra.account_id = $1 AND ra.is_active
ORDER BY r.id
`

// ActiveRoleNames is the projection used for access-token claims.
func (r *RoleAssignmentRepo) ActiveRoleNames(ctx context.Context, accountID int64) ([]string, error) {
	rows, _ := r.db.Query(ctx, activeRoleNames, accountID)
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return names, nil
}

const listByAccount = `-- name: ListAssignmentsByAccount
SELECT ra.id, ra.account_id, ra.role_id, ra.is_active, a.username, r.name
FROM role_assignments ra
JOIN accounts a ON a.id = ra.account_id
JOIN roles r ON r.id = ra.role_id
WHERE ra.account_id = $1 AND ra.is_active
ORDER BY ra.role_id
`

func (r *RoleAssignmentRepo) ListByAccount(ctx context.Context, accountID int64) ([]models.RoleAssignment, error) {
	rows, _ := r.db.Query(ctx, listByAccount, accountID)
	assignments, err := pgx.CollectRows(rows, rowToJoinedAssignment)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return assignments, nil
}

const listByRole = `-- name: ListAssignmentsByRole
SELECT ra.id, ra.account_id, ra.role_id, ra.is_active, a.username, r.name
FROM role_assignments ra
JOIN accounts a ON a.id = ra.account_id
JOIN roles r ON r.id = ra.role_id
WHERE ra.role_id = $1 AND ra.is_active
ORDER BY ra.account_id
`

func (r *RoleAssignmentRepo) ListByRole(ctx context.Context, roleID int64) ([]models.RoleAssignment, error) {
	rows, _ := r.db.Query(ctx, listByRole, roleID)
	assignments, err := pgx.CollectRows(rows, rowToJoinedAssignment)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return assignments, nil
}

func rowToAssignment(row pgx.CollectableRow) (models.RoleAssignment, error) {
	var a models.RoleAssignment
	err := row.Scan(&a.ID, &a.AccountID, &a.RoleID, &a.IsActive)
	return a, err
}

func rowToJoinedAssignment(row pgx.CollectableRow) (models.RoleAssignment, error) {
	var a models.RoleAssignment
	err := row.Scan(&a.ID, &a.AccountID, &a.RoleID, &a.IsActive, &a.Username, &a.RoleName)
	return a, err
}
