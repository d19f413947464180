package apperrors

import (
	"errors"
)

var (
	// Validation failures, detected before any lookup or side effect
	ErrInvalidInput = errors.New("invalid input")

	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// Returned for unknown username and wrong password alike so the
	// response never confirms which usernames exist
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is deactivated")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token is revoked")
	ErrDuplicateToken       = errors.New("refresh token already exists")

	ErrRoleNotFound    = errors.New("role not found")
	ErrRoleNotAssigned = errors.New("role not assigned to account")
)
