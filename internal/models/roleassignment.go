package models

// RoleAssignment links one account to one role with a soft-active flag.
//
// At most one row exists per (AccountID, RoleID) pair: assigning an already
// known pair reactivates the row, removing deactivates it. Rows are never
// deleted so the assignment history survives reactivation cycles.
type RoleAssignment struct {
	ID        int64
	AccountID int64
	RoleID    int64
	IsActive  bool

	// Counterpart entities, populated by list queries only
	Username string
	RoleName string
}
