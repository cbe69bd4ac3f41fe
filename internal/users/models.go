package users

import (
	"time"

	"arrest-log/internal/rbac"
)

// User is the canonical account record.
//
// Credential holds "<scheme>:<material>" (see auth.Hasher) and is never
// serialized to clients or into session snapshots.
type User struct {
	ID           string     `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Credential   string     `json:"-" db:"credential"`
	Role         rbac.Role  `json:"role" db:"role"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	LastActivity *time.Time `json:"lastActivity,omitempty" db:"last_activity"`
}

// RoleLabel is the display name for the user's role.
func (u User) RoleLabel() string { return u.Role.Label() }
