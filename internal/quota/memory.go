package quota

import (
	"context"
	"sync"
)

// MemoryStore keeps counts in process memory. Counts survive sessions but
// not restarts.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (m *MemoryStore) Get(_ context.Context, subject string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[subject], nil
}

func (m *MemoryStore) Increment(_ context.Context, subject string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[subject] >= limit {
		return m.counts[subject], ErrQuotaExceeded
	}
	m.counts[subject]++
	return m.counts[subject], nil
}
