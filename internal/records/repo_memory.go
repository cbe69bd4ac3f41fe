package records

import (
	"context"
	"sync"
)

// MemoryRepo keeps records newest first, mirroring insertion order.
type MemoryRepo struct {
	mu   sync.Mutex
	list []PrisonRecord
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) Insert(ctx context.Context, r PrisonRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		return ErrInvalidRecord
	}
	if m.indexOf(r.ID) >= 0 {
		return ErrInvalidRecord
	}
	m.list = append([]PrisonRecord{cloneRecord(r)}, m.list...)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (PrisonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return PrisonRecord{}, ErrNotFound
	}
	return cloneRecord(m.list[i]), nil
}

func (m *MemoryRepo) List(ctx context.Context) ([]PrisonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PrisonRecord, 0, len(m.list))
	for _, r := range m.list {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, fn MutateFunc) (PrisonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return PrisonRecord{}, ErrNotFound
	}
	r := cloneRecord(m.list[i])
	if err := fn(&r); err != nil {
		return PrisonRecord{}, err
	}
	r.ID = id
	r.Version = m.list[i].Version + 1
	m.list[i] = r
	return cloneRecord(r), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) (PrisonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return PrisonRecord{}, ErrNotFound
	}
	r := m.list[i]
	m.list = append(m.list[:i], m.list[i+1:]...)
	return r, nil
}

func (m *MemoryRepo) indexOf(id string) int {
	for i, r := range m.list {
		if r.ID == id {
			return i
		}
	}
	return -1
}
