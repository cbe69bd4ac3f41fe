package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps entries in process memory, newest first.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]LogEntry{e}, r.entries...)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, limit int) ([]LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]LogEntry, n)
	copy(out, r.entries[:n])
	return out, nil
}
