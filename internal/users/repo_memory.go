package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"arrest-log/internal/rbac"
)

// MemoryRepo is an in-process user store for tests and STORAGE_BACKEND=memory.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]User
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]User{}}
}

func (r *MemoryRepo) Create(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" || u.Username == "" {
		return ErrInvalidArgument
	}
	for _, existing := range r.byID {
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}
	r.byID[u.ID] = cloneUser(u)
	r.order = append(r.order, u.ID)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneUser(r.byID[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *MemoryRepo) UpdateRole(ctx context.Context, id string, role rbac.Role) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	u.Role = role
	r.byID[id] = u
	return cloneUser(u), nil
}

func (r *MemoryRepo) UpdateCredential(ctx context.Context, id, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Credential = credential
	r.byID[id] = u
	return nil
}

func (r *MemoryRepo) TouchActivity(ctx context.Context, id string, at time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if u.LastActivity == nil || at.After(*u.LastActivity) {
		t := at
		u.LastActivity = &t
	}
	r.byID[id] = u
	return cloneUser(u), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return cloneUser(u), nil
}

func cloneUser(u User) User {
	if u.LastActivity != nil {
		t := *u.LastActivity
		u.LastActivity = &t
	}
	return u
}
