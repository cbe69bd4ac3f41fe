package auth

import (
	"context"
	"errors"

	"arrest-log/internal/rbac"
	"arrest-log/internal/users"
)

type ctxKey int

const ctxIdentity ctxKey = iota

var errNoIdentity = errors.New("identity not in context")

// Identity is the authenticated caller resolved from the session snapshot.
type Identity struct {
	SessionID string
	User      users.User
}

func (i Identity) Role() rbac.Role { return i.User.Role }

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func FromContext(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.SessionID != "" {
		return id, nil
	}
	return Identity{}, errNoIdentity
}
