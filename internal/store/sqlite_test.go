package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleResult(ids ...string) *model.Result {
	res := &model.Result{Source: model.SourceAnalysis, CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	for i, id := range ids {
		s := model.Scored{
			Vehicle:    model.Vehicle{ID: id, Brand: "Porsche", Model: "911", Version: "GT3", Name: id, Price: 185000, Power: 510},
			Attributes: model.Attributes{Category: "Supercar", Pros: []string{"Prestige"}},
			AIScore:    90 - i,
		}
		res.Vehicles = append(res.Vehicles, s)
		res.Ranking = append(res.Ranking, s)
	}
	return res
}

// --- Usage ---

func TestSQLite_Usage_MissingIsZero(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.Get(context.Background(), "user:nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_Usage_IncrementUpToLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.Increment(ctx, "user:alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = st.Increment(ctx, "user:alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = st.Increment(ctx, "user:alice", 2)
	assert.True(t, errors.Is(err, quota.ErrQuotaExceeded))

	n, err = st.Get(ctx, "user:alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "a refused increment leaves the count unchanged")

	n, err = st.Get(ctx, "user:bob")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_Usage_ZeroLimit(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Increment(context.Background(), "user:alice", 0)
	assert.True(t, errors.Is(err, quota.ErrQuotaExceeded))
}

func TestSQLite_Usage_ConcurrentIncrements(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Increment(ctx, "user:alice", 3); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	n, err := st.Get(ctx, "user:alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLite_Usage_BacksQuota(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	q, err := quota.New(ctx, st, "user:alice", 2)
	require.NoError(t, err)
	require.NoError(t, q.Consume(ctx))

	// A new session of the same subject sees the persisted count.
	again, err := quota.New(ctx, st, "user:alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Count())
	require.NoError(t, again.Consume(ctx))
	assert.True(t, errors.Is(again.Consume(ctx), quota.ErrQuotaExceeded))
}

// --- History ---

func TestSQLite_History_SaveAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveComparison(ctx, "user:alice", sampleResult("a", "b"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	time.Sleep(2 * time.Millisecond)
	second, err := st.SaveComparison(ctx, "user:alice", sampleResult("c", "d", "e"))
	require.NoError(t, err)
	_, err = st.SaveComparison(ctx, "user:bob", sampleResult("a", "b"))
	require.NoError(t, err)

	recs, err := st.ListComparisons(ctx, "user:alice", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second.ID, recs[0].ID, "newest first")
	assert.Equal(t, first.ID, recs[1].ID)
	assert.Equal(t, "user:alice", recs[0].Subject)
	require.Len(t, recs[0].Result.Ranking, 3)
	assert.Equal(t, "c", recs[0].Result.Ranking[0].ID)
	assert.Equal(t, 90, recs[0].Result.Ranking[0].AIScore)
	assert.Equal(t, []string{"Prestige"}, recs[0].Result.Ranking[0].Pros)

	recs, err = st.ListComparisons(ctx, "user:alice", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = st.ListComparisons(ctx, "user:carol", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLite_History_NilResult(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SaveComparison(context.Background(), "user:alice", nil)
	require.Error(t, err)
}

func TestSQLite_PingAndMigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Ping(ctx))
	require.NoError(t, st.Migrate(ctx))
}
