package records

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrForbidden       = errors.New("not allowed")
)

// MutateFunc edits a record in place inside Repository.Update.
// Returning an error aborts the update.
type MutateFunc func(r *PrisonRecord) error

// Repository stores records one row per record.
type Repository interface {
	Insert(ctx context.Context, r PrisonRecord) error
	Get(ctx context.Context, id string) (PrisonRecord, error)
	// List returns records most recent first.
	List(ctx context.Context) ([]PrisonRecord, error)
	// Update atomically loads the record, applies fn and stores it with
	// Version incremented.
	Update(ctx context.Context, id string, fn MutateFunc) (PrisonRecord, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id string) (PrisonRecord, error)
}
