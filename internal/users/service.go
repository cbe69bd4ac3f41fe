package users

import (
	"context"
	"fmt"

	"arrest-log/internal/audit"
	"arrest-log/internal/rbac"
	"arrest-log/pkg/logger"
)

// SessionInvalidator drops every cached session snapshot of a user. It is
// called after each canonical mutation so snapshots cannot drift.
type SessionInvalidator interface {
	DeleteByUser(ctx context.Context, userID string) error
}

// Service covers user administration: listing, role changes (including
// approving pending registrations) and removal.
// rbac.CanManageUsers is enforced at the HTTP boundary. The service enforces
// rank: non-admin managers only act on, and only grant, lower roles.
type Service struct {
	repo     Repository
	audit    *audit.Service
	sessions SessionInvalidator
}

func NewService(repo Repository, auditSvc *audit.Service, sessions SessionInvalidator) *Service {
	return &Service{repo: repo, audit: auditSvc, sessions: sessions}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrInvalidArgument
	}
	return s.repo.GetByID(ctx, id)
}

// ChangeRole sets the user's role. Changing to the current role is a no-op.
func (s *Service) ChangeRole(ctx context.Context, actor User, userID string, role rbac.Role) (User, error) {
	if userID == "" || !role.Valid() {
		return User{}, ErrInvalidArgument
	}
	before, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if !rbac.CanAssign(actor.Role, before.Role, role) {
		return User{}, ErrForbidden
	}
	if before.Role == role {
		return before, nil
	}

	after, err := s.repo.UpdateRole(ctx, userID, role)
	if err != nil {
		return User{}, fmt.Errorf("update role: %w", err)
	}
	s.invalidate(ctx, userID)
	s.log(ctx, audit.ActionRoleChange, actor.Username, after.Username,
		fmt.Sprintf("%s -> %s", before.Role, after.Role))
	return after, nil
}

// Approve promotes a pending registration to role.
func (s *Service) Approve(ctx context.Context, actor User, userID string, role rbac.Role) (User, error) {
	if role == rbac.RolePending {
		return User{}, ErrInvalidArgument
	}
	return s.ChangeRole(ctx, actor, userID, role)
}

// RemoveUser deletes the account. Actors cannot remove themselves.
func (s *Service) RemoveUser(ctx context.Context, actor User, userID string) (User, error) {
	if userID == "" {
		return User{}, ErrInvalidArgument
	}
	if userID == actor.ID {
		return User{}, ErrSelfRemoval
	}
	target, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if !rbac.CanRemove(actor.Role, target.Role) {
		return User{}, ErrForbidden
	}
	removed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return User{}, err
	}
	s.invalidate(ctx, userID)
	s.log(ctx, audit.ActionUserRemove, actor.Username, removed.Username,
		fmt.Sprintf("role was %s", removed.Role))
	return removed, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		logger.From(ctx).Warn("session invalidation failed", "user_id", userID, "err", err)
	}
}

func (s *Service) log(ctx context.Context, action audit.Action, performedBy, target, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogUserAction(ctx, action, performedBy, target, details); err != nil {
		logger.From(ctx).Warn("audit append failed", "action", action, "err", err)
	}
}
