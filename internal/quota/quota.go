// Package quota tracks free comparisons consumed against a fixed limit.
package quota

import (
	"context"
	"errors"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/model"
)

// DefaultLimit is the number of free comparisons per identity.
const DefaultLimit = 2

// ErrQuotaExceeded is returned when no free comparison is left.
var ErrQuotaExceeded = eris.New("quota: free comparisons exhausted")

// Store persists usage counts per identity subject.
//
// Increment must be atomic: it raises the count by one only while the stored
// count is below limit and returns the new count, or ErrQuotaExceeded when
// the limit is already reached.
type Store interface {
	Get(ctx context.Context, subject string) (int, error)
	Increment(ctx context.Context, subject string, limit int) (int, error)
}

// Quota is the usage quota of one identity, owned by a session. It is safe
// for concurrent use; the store is never called with the lock held.
type Quota struct {
	store   Store
	subject string
	limit   int

	mu    sync.Mutex
	count int
}

// New loads the current count for subject from store.
func New(ctx context.Context, store Store, subject string, limit int) (*Quota, error) {
	if store == nil {
		return nil, eris.New("quota: nil store")
	}
	if limit < 0 {
		limit = 0
	}
	q := &Quota{store: store, subject: subject, limit: limit}
	if err := q.Refresh(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// Refresh reloads the count from the store.
func (q *Quota) Refresh(ctx context.Context) error {
	n, err := q.store.Get(ctx, q.subject)
	if err != nil {
		return eris.Wrapf(err, "quota: load usage for %s", q.subject)
	}
	q.raise(n)
	return nil
}

// raise lifts the cached count to n. Counts never go down.
func (q *Quota) raise(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > q.count {
		q.count = n
	}
}

// Subject returns the identity the quota belongs to.
func (q *Quota) Subject() string { return q.subject }

// Count returns the number of comparisons consumed.
func (q *Quota) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Limit returns the number of free comparisons.
func (q *Quota) Limit() int { return q.limit }

// Remaining returns limit - count, floored at zero.
func (q *Quota) Remaining() int {
	return remaining(q.limit, q.Count())
}

func remaining(limit, count int) int {
	if r := limit - count; r > 0 {
		return r
	}
	return 0
}

// HasQuota reports whether another comparison may run.
func (q *Quota) HasQuota() bool { return q.Count() < q.limit }

// Usage returns the quota as a presentation value.
func (q *Quota) Usage() model.Usage {
	n := q.Count()
	return model.Usage{Count: n, Limit: q.limit, Remaining: remaining(q.limit, n)}
}

// Consume spends one comparison. It is never retried: on a store error the
// count is left untouched and the caller must not show a result.
func (q *Quota) Consume(ctx context.Context) error {
	if !q.HasQuota() {
		return ErrQuotaExceeded
	}
	n, err := q.store.Increment(ctx, q.subject, q.limit)
	if errors.Is(err, ErrQuotaExceeded) {
		// Another session of the same identity spent the last comparison.
		q.raise(q.limit)
		return ErrQuotaExceeded
	}
	if err != nil {
		return eris.Wrapf(err, "quota: consume for %s", q.subject)
	}
	q.raise(n)
	zap.L().Debug("quota: consumed",
		zap.String("subject", q.subject),
		zap.Int("count", q.Count()),
		zap.Int("limit", q.limit),
	)
	return nil
}
