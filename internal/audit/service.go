package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for log entries.
// It is append-only: there are no Update/Delete methods.
type Repository interface {
	Append(ctx context.Context, e LogEntry) error
	// List returns at most limit entries, most recent first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]LogEntry, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e LogEntry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Action.Valid() || e.PerformedBy == "" {
		return ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) List(ctx context.Context, limit int) ([]LogEntry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, limit)
}

// LogRecord records a create/edit/delete against a record; snapshot is
// marshalled as the TargetRecord.
func (s *Service) LogRecord(ctx context.Context, action Action, performedBy string, snapshot any, details string) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("audit: snapshot: %w", err)
	}
	return s.Append(ctx, LogEntry{
		Action:       action,
		PerformedBy:  performedBy,
		TargetRecord: raw,
		Details:      details,
	})
}

// LogUserAction records role_change or user_remove.
func (s *Service) LogUserAction(ctx context.Context, action Action, performedBy, targetUser, details string) error {
	return s.Append(ctx, LogEntry{
		Action:      action,
		PerformedBy: performedBy,
		TargetUser:  targetUser,
		Details:     details,
	})
}
