package attendance

import (
	"context"
	"sync"
)

// MemoryStore keeps the ledger and roster in process memory. It backs the
// tests and the STORE_BACKEND=memory dev mode. Lookups are linear scans;
// rosters are small enough that nothing here needs an index.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	roster  []RosterEntry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendRecord adds one ledger row. Insertion order is preserved.
func (m *MemoryStore) AppendRecord(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return rec, nil
}

// RecordsByStudent returns every row matching the id exactly, oldest first.
func (m *MemoryStore) RecordsByStudent(_ context.Context, studentID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetRecord returns a single row by id, or nil when absent.
func (m *MemoryStore) GetRecord(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// SetRecordWeather overwrites the weather string of one row.
func (m *MemoryStore) SetRecordWeather(_ context.Context, id, weather string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Weather = weather
			return nil
		}
	}
	return nil
}

// RosterEntry finds a roster row by exact id match, nil when missing.
func (m *MemoryStore) RosterEntry(_ context.Context, studentID string) (*RosterEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.roster {
		if m.roster[i].StudentID == studentID {
			entry := m.roster[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// UpdateRosterCounts writes the counter split of an existing entry.
func (m *MemoryStore) UpdateRosterCounts(_ context.Context, studentID string, present, absent int, percentage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.roster {
		if m.roster[i].StudentID == studentID {
			m.roster[i].PresentCount = present
			m.roster[i].AbsentCount = absent
			m.roster[i].Percentage = percentage
			return nil
		}
	}
	return ErrStudentNotFound
}

// UpsertRosterEntry replaces or inserts a whole entry.
func (m *MemoryStore) UpsertRosterEntry(_ context.Context, entry RosterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.roster {
		if m.roster[i].StudentID == entry.StudentID {
			m.roster[i] = entry
			return nil
		}
	}
	m.roster = append(m.roster, entry)
	return nil
}
