package userrole

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscore/backend/internal/apperrors"
	"github.com/campuscore/backend/internal/logger"
	"github.com/campuscore/backend/internal/models"
	"github.com/campuscore/backend/internal/repository"
)

// Service maintains the account-role relation and answers authorization
// queries. Ids are checked for shape only: whether the account or role
// actually exists is the store's business and surfaces as a storage error.
type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	if l == nil {
		l = logger.NewNoOp()
	}

	return &Service{storage: storage, logger: l}, nil
}

// Assign gives the account the role. Calling it for an already known pair,
// active or not, reactivates the existing row instead of inserting another.
func (s *Service) Assign(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error) {
	if err := checkIDs(accountID, roleID); err != nil {
		return models.RoleAssignment{}, err
	}

	assignment, err := s.storage.RoleAssignment().Assign(ctx, accountID, roleID)
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound), errors.Is(err, apperrors.ErrRoleNotFound):
		return assignment, err
	case err != nil:
		s.logger.Error("error assigning role", "account_id", accountID, "role_id", roleID, "error", err)
		return assignment, fmt.Errorf("assign role: %w", err)
	}

	return assignment, nil
}

// Remove deactivates the assignment. The row stays for history and can be
// reactivated by a later Assign.
func (s *Service) Remove(ctx context.Context, accountID int64, roleID int64) error {
	if err := checkIDs(accountID, roleID); err != nil {
		return err
	}

	_, err := s.storage.RoleAssignment().Deactivate(ctx, accountID, roleID)
	switch {
	case errors.Is(err, apperrors.ErrRoleNotAssigned):
		return err
	case err != nil:
		s.logger.Error("error removing role", "account_id", accountID, "role_id", roleID, "error", err)
		return fmt.Errorf("remove role: %w", err)
	}

	return nil
}

// HasRole reports whether an active assignment exists for the pair.
func (s *Service) HasRole(ctx context.Context, accountID int64, roleID int64) (bool, error) {
	if err := checkIDs(accountID, roleID); err != nil {
		return false, err
	}

	has, err := s.storage.RoleAssignment().HasRole(ctx, accountID, roleID)
	if err != nil {
		s.logger.Error("error checking role", "account_id", accountID, "role_id", roleID, "error", err)
		return false, fmt.Errorf("has role: %w", err)
	}

	return has, nil
}

// HasRoleNamed is HasRole keyed by role name instead of id.
func (s *Service) HasRoleNamed(ctx context.Context, accountID int64, roleName string) (bool, error) {
	if accountID <= 0 {
		return false, fmt.Errorf("%w: account id must be greater than zero", apperrors.ErrInvalidInput)
	}
	if !models.ValidRoleName(roleName) {
		return false, fmt.Errorf("%w: unknown role %q", apperrors.ErrInvalidInput, roleName)
	}

	has, err := s.storage.RoleAssignment().HasRoleNamed(ctx, accountID, roleName)
	if err != nil {
		s.logger.Error("error checking role", "account_id", accountID, "role", roleName, "error", err)
		return false, fmt.Errorf("has role: %w", err)
	}

	return has, nil
}

// RoleNames lists the account's active role names, the same projection the
// token issuer embeds as claims.
func (s *Service) RoleNames(ctx context.Context, accountID int64) ([]string, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: account id must be greater than zero", apperrors.ErrInvalidInput)
	}

	names, err := s.storage.RoleAssignment().ActiveRoleNames(ctx, accountID)
	if err != nil {
		s.logger.Error("error listing role names", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("role names: %w", err)
	}

	return names, nil
}

// GetByAccountAndRole returns the assignment row for the pair, active or not.
func (s *Service) GetByAccountAndRole(ctx context.Context, accountID int64, roleID int64) (models.RoleAssignment, error) {
	if err := checkIDs(accountID, roleID); err != nil {
		return models.RoleAssignment{}, err
	}

	assignment, err := s.storage.RoleAssignment().GetByAccountAndRole(ctx, accountID, roleID)
	switch {
	case errors.Is(err, apperrors.ErrRoleNotAssigned):
		return assignment, err
	case err != nil:
		s.logger.Error("error getting assignment", "account_id", accountID, "role_id", roleID, "error", err)
		return assignment, fmt.Errorf("get assignment: %w", err)
	}

	return assignment, nil
}

// ListByAccount lists the account's active assignments joined with role names.
func (s *Service) ListByAccount(ctx context.Context, accountID int64) ([]models.RoleAssignment, error) {
	if accountID <= 0 {
		return nil, fmt.Errorf("%w: account id must be greater than zero", apperrors.ErrInvalidInput)
	}

	assignments, err := s.storage.RoleAssignment().ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("error listing assignments", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	return assignments, nil
}

// ListByRole lists the role's active assignments joined with usernames.
func (s *Service) ListByRole(ctx context.Context, roleID int64) ([]models.RoleAssignment, error) {
	if roleID <= 0 {
		return nil, fmt.Errorf("%w: role id must be greater than zero", apperrors.ErrInvalidInput)
	}

	assignments, err := s.storage.RoleAssignment().ListByRole(ctx, roleID)
	if err != nil {
		s.logger.Error("error listing assignments", "role_id", roleID, "error", err)
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	return assignments, nil
}

func checkIDs(accountID int64, roleID int64) error {
	if accountID <= 0 || roleID <= 0 {
		return fmt.Errorf("%w: account id and role id must be greater than zero", apperrors.ErrInvalidInput)
	}
	return nil
}
