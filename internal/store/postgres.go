package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sportcar/internal/db"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	increment string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	s, err := newPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool) (*PostgresStore, error) {
	increment, err := db.ConditionalIncrementSQL(db.Postgres, usageCounter)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, increment: increment}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS usage (
	subject    TEXT PRIMARY KEY,
	count      INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	subject    TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comparisons_subject ON comparisons(subject, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subject string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count FROM usage WHERE subject = $1`, subject).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: get usage %s", subject)
	}
	return n, nil
}

func (s *PostgresStore) Increment(ctx context.Context, subject string, limit int) (int, error) {
	if limit <= 0 {
		return 0, quota.ErrQuotaExceeded
	}
	var n int
	err := s.pool.QueryRow(ctx, s.increment, subject, time.Now().UTC(), limit).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return limit, quota.ErrQuotaExceeded
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: increment usage %s", subject)
	}
	return n, nil
}

func (s *PostgresStore) SaveComparison(ctx context.Context, subject string, res *model.Result) (*model.ComparisonRecord, error) {
	rec, data, err := newRecord(subject, res, uuid.New().String(), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparisons (id, subject, result, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, subject, data, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert comparison for %s", subject)
	}
	return rec, nil
}

func (s *PostgresStore) ListComparisons(ctx context.Context, subject string, limit int) ([]model.ComparisonRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, result, created_at FROM comparisons WHERE subject = $1 ORDER BY created_at DESC LIMIT $2`,
		subject, historyLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonRecord
	for rows.Next() {
		var (
			rec  model.ComparisonRecord
			data []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Subject, &data, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan comparison")
		}
		if err := json.Unmarshal(data, &rec.Result); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal comparison %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list comparisons iterate")
}
