package models

import (
	"time"
)

// RefreshToken is a persisted single-use refresh session. The token string
// is opaque and high entropy; it carries no structure outside the store.
//
// A token is only ever mutated to flip IsRevoked with a reason and
// timestamp. Revoked and expired rows are kept for audit.
type RefreshToken struct {
	ID            int64
	AccountID     int64
	Token         string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	IsRevoked     bool
	RevokedAt     *time.Time // nil while the token is live
	RevokedReason string

	// Owning account, populated by GetByToken so a rotation needs a
	// single storage round trip
	Account *Account
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is what a successful login or refresh returns to the caller.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
