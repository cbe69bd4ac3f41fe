// Package session holds the current-user snapshot for each login.
//
// A snapshot is a derived cache of the canonical users row: it is written on
// login, rewritten on activity, and dropped (DeleteByUser) whenever the
// canonical row changes role, credential or is removed.
package session

import (
	"context"
	"errors"
	"time"

	"arrest-log/internal/users"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID        string     `json:"id"`
	User      users.User `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

type Store interface {
	// Put writes s; it expires at s.ExpiresAt.
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	// ReplaceUser rewrites the user snapshot of an existing session, keeping its expiry.
	ReplaceUser(ctx context.Context, id string, u users.User) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}
