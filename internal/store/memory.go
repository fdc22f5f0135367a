package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
)

// MemoryStore implements Store in process memory. Nothing survives a restart.
type MemoryStore struct {
	*quota.MemoryStore

	mu      sync.Mutex
	history []model.ComparisonRecord
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{MemoryStore: quota.NewMemoryStore()}
}

func (m *MemoryStore) SaveComparison(_ context.Context, subject string, res *model.Result) (*model.ComparisonRecord, error) {
	rec, _, err := newRecord(subject, res, uuid.New().String(), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *rec)
	return rec, nil
}

func (m *MemoryStore) ListComparisons(_ context.Context, subject string, limit int) ([]model.ComparisonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ComparisonRecord
	for _, rec := range slices.Backward(m.history) {
		if rec.Subject != subject {
			continue
		}
		rec.Result = *rec.Result.Clone()
		out = append(out, rec)
		if len(out) == historyLimit(limit) {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error    { return nil }
func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }
