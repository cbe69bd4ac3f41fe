package users

import (
	"context"
	"errors"
	"time"

	"arrest-log/internal/rbac"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrSelfRemoval       = errors.New("cannot remove own account")
	ErrForbidden         = errors.New("role outranks actor")
)

// Repository is the persistence contract for users.
// Username lookups are exact and case-sensitive.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// List returns users ordered by creation time, oldest first.
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)

	UpdateRole(ctx context.Context, id string, role rbac.Role) (User, error)
	UpdateCredential(ctx context.Context, id, credential string) error
	// TouchActivity sets LastActivity to at, never moving it backwards, and
	// returns the updated user.
	TouchActivity(ctx context.Context, id string, at time.Time) (User, error)

	// Delete removes the user and returns it as it was.
	Delete(ctx context.Context, id string) (User, error)
}
