// Package store persists usage counts and comparison history.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sportcar/internal/db"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
)

// DefaultHistoryLimit caps ListComparisons when no limit is given.
const DefaultHistoryLimit = 50

// Store is the persistence interface of the comparator.
type Store interface {
	// Usage
	quota.Store

	// History
	SaveComparison(ctx context.Context, subject string, res *model.Result) (*model.ComparisonRecord, error)
	ListComparisons(ctx context.Context, subject string, limit int) ([]model.ComparisonRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var usageCounter = db.CounterConfig{
	Table:    "usage",
	KeyCol:   "subject",
	CountCol: "count",
	TouchCol: "updated_at",
}

func newRecord(subject string, res *model.Result, id string, now time.Time) (*model.ComparisonRecord, []byte, error) {
	if res == nil {
		return nil, nil, eris.New("store: nil comparison result")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal result")
	}
	return &model.ComparisonRecord{
		ID:        id,
		Subject:   subject,
		Result:    *res.Clone(),
		CreatedAt: now,
	}, data, nil
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
