package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/rbac"
)

type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) DeleteByUser(ctx context.Context, userID string) error {
	f.calls = append(f.calls, userID)
	return nil
}

func seed(t *testing.T, repo *MemoryRepo, id, username string, role rbac.Role) User {
	t.Helper()
	u := User{ID: id, Username: username, Credential: "bcrypt:x", Role: role, CreatedAt: time.Unix(1700000000, 0).UTC()}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return u
}

func TestService_ChangeRoleLogsAndInvalidates(t *testing.T) {
	repo := NewMemoryRepo()
	logs := audit.NewMemoryRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, audit.NewService(logs), inv)

	admin := seed(t, repo, "u-admin", "alpha", rbac.RoleAdmin)
	seed(t, repo, "u-bravo", "bravo", rbac.RolePending)

	got, err := svc.Approve(context.Background(), admin, "u-bravo", rbac.RoleOficial)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Role != rbac.RoleOficial {
		t.Fatalf("expected oficial, got %s", got.Role)
	}
	if len(inv.calls) != 1 || inv.calls[0] != "u-bravo" {
		t.Fatalf("expected sessions of u-bravo invalidated, got %v", inv.calls)
	}
	entries, _ := logs.List(context.Background(), 0)
	if len(entries) != 1 || entries[0].Action != audit.ActionRoleChange || entries[0].TargetUser != "bravo" || entries[0].PerformedBy != "alpha" {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}

func TestService_ChangeRoleSameRoleIsNoop(t *testing.T) {
	repo := NewMemoryRepo()
	logs := audit.NewMemoryRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, audit.NewService(logs), inv)

	admin := seed(t, repo, "u-admin", "alpha", rbac.RoleAdmin)
	seed(t, repo, "u-bravo", "bravo", rbac.RoleUser)

	if _, err := svc.ChangeRole(context.Background(), admin, "u-bravo", rbac.RoleUser); err != nil {
		t.Fatalf("change role: %v", err)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("expected no invalidation")
	}
	if entries, _ := logs.List(context.Background(), 0); len(entries) != 0 {
		t.Fatalf("expected no audit entries")
	}
}

func TestService_ApproveRejectsPendingTarget(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil, nil)
	admin := seed(t, repo, "u-admin", "alpha", rbac.RoleAdmin)
	seed(t, repo, "u-bravo", "bravo", rbac.RolePending)

	if _, err := svc.Approve(context.Background(), admin, "u-bravo", rbac.RolePending); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.ChangeRole(context.Background(), admin, "u-bravo", rbac.Role("root")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown role, got %v", err)
	}
}

func TestService_RemoveUser(t *testing.T) {
	repo := NewMemoryRepo()
	logs := audit.NewMemoryRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, audit.NewService(logs), inv)

	admin := seed(t, repo, "u-admin", "alpha", rbac.RoleAdmin)
	seed(t, repo, "u-bravo", "bravo", rbac.RoleUser)

	if _, err := svc.RemoveUser(context.Background(), admin, admin.ID); !errors.Is(err, ErrSelfRemoval) {
		t.Fatalf("expected ErrSelfRemoval, got %v", err)
	}

	removed, err := svc.RemoveUser(context.Background(), admin, "u-bravo")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Username != "bravo" {
		t.Fatalf("unexpected removed user %+v", removed)
	}
	if _, err := repo.GetByID(context.Background(), "u-bravo"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	if _, err := svc.RemoveUser(context.Background(), admin, "u-bravo"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
	entries, _ := logs.List(context.Background(), 0)
	if len(entries) != 1 || entries[0].Action != audit.ActionUserRemove {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}

func TestMemoryRepo_UsernameIsCaseSensitiveAndUnique(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "1", "bravo", rbac.RolePending)

	if err := repo.Create(context.Background(), User{ID: "2", Username: "bravo"}); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	if err := repo.Create(context.Background(), User{ID: "3", Username: "Bravo"}); err != nil {
		t.Fatalf("different case must be allowed, got %v", err)
	}
	if _, err := repo.GetByUsername(context.Background(), "BRAVO"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup must be exact, got %v", err)
	}
}

func TestMemoryRepo_TouchActivityNeverMovesBackwards(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "1", "bravo", rbac.RoleUser)
	t1 := time.Unix(1700000100, 0).UTC()
	t0 := time.Unix(1700000050, 0).UTC()

	u, err := repo.TouchActivity(context.Background(), "1", t1)
	if err != nil || u.LastActivity == nil || !u.LastActivity.Equal(t1) {
		t.Fatalf("unexpected touch result %+v, %v", u, err)
	}
	u, _ = repo.TouchActivity(context.Background(), "1", t0)
	if !u.LastActivity.Equal(t1) {
		t.Fatalf("last activity moved backwards: %s", u.LastActivity)
	}
}

func TestService_ComandoCannotEscalate(t *testing.T) {
	repo := NewMemoryRepo()
	inv := &fakeInvalidator{}
	svc := NewService(repo, nil, inv)
	ctx := context.Background()

	seed(t, repo, "u-admin", "alpha", rbac.RoleAdmin)
	cmd := seed(t, repo, "u-cmd", "charlie", rbac.RoleComando)
	seed(t, repo, "u-bravo", "bravo", rbac.RolePending)

	if _, err := svc.ChangeRole(ctx, cmd, "u-cmd", rbac.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self promotion: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Approve(ctx, cmd, "u-bravo", rbac.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("granting admin: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, cmd, "u-admin", rbac.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("demoting admin: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.RemoveUser(ctx, cmd, "u-admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("removing admin: expected ErrForbidden, got %v", err)
	}
	if len(inv.calls) != 0 {
		t.Fatalf("rejected changes must not touch sessions, got %v", inv.calls)
	}

	got, err := svc.Approve(ctx, cmd, "u-bravo", rbac.RoleOficial)
	if err != nil || got.Role != rbac.RoleOficial {
		t.Fatalf("comando approving oficial: %+v, %v", got, err)
	}
	if _, err := svc.RemoveUser(ctx, cmd, "u-bravo"); err != nil {
		t.Fatalf("comando removing oficial: %v", err)
	}
	admin, _ := repo.GetByID(ctx, "u-admin")
	if admin.Role != rbac.RoleAdmin {
		t.Fatalf("admin role must be untouched, got %s", admin.Role)
	}
}
