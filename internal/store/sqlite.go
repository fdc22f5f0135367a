package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/sportcar/internal/db"
	"github.com/sells-group/sportcar/internal/model"
	"github.com/sells-group/sportcar/internal/quota"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	increment string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	increment, err := db.ConditionalIncrementSQL(db.SQLite, usageCounter)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection and SQLite has a single writer.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, increment: increment}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS usage (
	subject    TEXT PRIMARY KEY,
	count      INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_comparisons_subject ON comparisons(subject, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, subject string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count FROM usage WHERE subject = ?`, subject).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: get usage %s", subject)
	}
	return n, nil
}

func (s *SQLiteStore) Increment(ctx context.Context, subject string, limit int) (int, error) {
	if limit <= 0 {
		return 0, quota.ErrQuotaExceeded
	}
	var n int
	err := s.db.QueryRowContext(ctx, s.increment, subject, time.Now().UTC(), limit).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return limit, quota.ErrQuotaExceeded
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: increment usage %s", subject)
	}
	return n, nil
}

func (s *SQLiteStore) SaveComparison(ctx context.Context, subject string, res *model.Result) (*model.ComparisonRecord, error) {
	rec, data, err := newRecord(subject, res, uuid.New().String(), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, subject, result, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, subject, string(data), rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert comparison for %s", subject)
	}
	return rec, nil
}

func (s *SQLiteStore) ListComparisons(ctx context.Context, subject string, limit int) ([]model.ComparisonRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, result, created_at FROM comparisons WHERE subject = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		subject, historyLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonRecord
	for rows.Next() {
		rec, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list comparisons iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanComparison(row scannable) (*model.ComparisonRecord, error) {
	var (
		rec  model.ComparisonRecord
		data string
	)
	if err := row.Scan(&rec.ID, &rec.Subject, &data, &rec.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan comparison")
	}
	if err := json.Unmarshal([]byte(data), &rec.Result); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal comparison %s", rec.ID)
	}
	return &rec, nil
}
