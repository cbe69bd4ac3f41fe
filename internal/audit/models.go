package audit

import (
	"encoding/json"
	"time"
)

// LogEntry is an append-only activity record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Listing is most-recent-first.
// - Audit is best-effort: callers log and continue on failure.
type LogEntry struct {
	ID     string `json:"id" db:"id"`
	Action Action `json:"action" db:"action"`

	// PerformedBy is the username of the acting user.
	PerformedBy string `json:"performedBy" db:"performed_by"`

	// TargetUser is set for role_change and user_remove.
	TargetUser string `json:"targetUser,omitempty" db:"target_user"`

	// TargetRecord is a JSON snapshot of the record as it was when the action ran.
	TargetRecord json.RawMessage `json:"targetRecord,omitempty" db:"target_record"`

	Details   string    `json:"details,omitempty" db:"details"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

type Action string

const (
	ActionCreate     Action = "create"
	ActionEdit       Action = "edit"
	ActionDelete     Action = "delete"
	ActionRoleChange Action = "role_change"
	ActionUserRemove Action = "user_remove"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionEdit, ActionDelete, ActionRoleChange, ActionUserRemove:
		return true
	default:
		return false
	}
}
