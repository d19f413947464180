package models

import (
	"time"
)

// Account is a system user: the identity that logs in, holds role
// assignments and owns refresh tokens.
//
// Accounts are deactivated, not deleted. IsActive=false blocks login and
// token refresh but keeps history intact.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time // nil until first login
}
