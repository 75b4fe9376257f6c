package worklocation

import (
	"context"
	"sync"
)

// MemoryStore keeps locations in process memory for tests and dev mode.
type MemoryStore struct {
	mu        sync.RWMutex
	locations []Location
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ByStudent returns rows matching the student id exactly.
func (m *MemoryStore) ByStudent(_ context.Context, studentID string) ([]Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Location
	for _, loc := range m.locations {
		if loc.StudentID == studentID {
			out = append(out, loc)
		}
	}
	return out, nil
}

// Append adds one row.
func (m *MemoryStore) Append(_ context.Context, loc Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
	return nil
}

// Delete removes the row with the given id, ErrNotFound when absent.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.ID == id {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
