package bug

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps bugs in process memory. It backs tests and the "memory" store mode.
type MemoryStore struct {
	mu      sync.RWMutex
	bugs    map[uuid.UUID]Bug
	nextSeq int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bugs: make(map[uuid.UUID]Bug)}
}

func (m *MemoryStore) Create(_ context.Context, b Bug) (Bug, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	b.Seq = m.nextSeq
	m.bugs[b.ID] = b.clone()
	return b.clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Bug, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.bugs[id]
	if !ok {
		return Bug{}, ErrBugNotFound
	}
	return b.clone(), nil
}

func (m *MemoryStore) List(_ context.Context, d Descriptor) (Page, error) {
	return Execute(m.snapshot(), d), nil
}

func (m *MemoryStore) Update(_ context.Context, b Bug) (Bug, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.bugs[b.ID]
	if !ok {
		return Bug{}, ErrBugNotFound
	}
	b.Seq = current.Seq
	b.CreatedAt = current.CreatedAt
	m.bugs[b.ID] = b.clone()
	return b.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bugs[id]; !ok {
		return ErrBugNotFound
	}
	delete(m.bugs, id)
	return nil
}

func (m *MemoryStore) Stats(_ context.Context) (Summary, error) {
	return Summarize(m.snapshot()), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) snapshot() []Bug {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Bug, 0, len(m.bugs))
	for _, b := range m.bugs {
		out = append(out, b)
	}
	return out
}
