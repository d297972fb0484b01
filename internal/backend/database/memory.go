package database

import "sync"

// MemoryStore keeps the gallery index in process memory. Useful for tests and throwaway demos.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	mu          sync.Mutex
	records     []ImageRecord
	initialized bool
}

func NewMemoryStore(records ...ImageRecord) *MemoryStore {
	store := &MemoryStore{}
	if len(records) > 0 {
		store.records = cloneRecords(records)
		store.initialized = true
	}
	return store
}

func (m *MemoryStore) Load() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		m.initialized = true
		m.records = []ImageRecord{}
		return initializedSnapshot()
	}
	return okSnapshot(cloneRecords(m.records))
}

func (m *MemoryStore) Save(records []ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = cloneRecords(records)
	m.initialized = true
	return nil
}

func (m *MemoryStore) Ping() error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cloneRecords(records []ImageRecord) []ImageRecord {
	out := make([]ImageRecord, len(records))
	copy(out, records)
	return out
}
