package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Dialect selects the bind parameter syntax of the generated SQL.
type Dialect int

const (
	// Postgres uses $1, $2, ...
	Postgres Dialect = iota
	// SQLite uses ?.
	SQLite
)

func (d Dialect) param(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// CounterConfig describes a per-key counter table.
type CounterConfig struct {
	Table    string // target table (e.g., "usage" or "app.usage")
	KeyCol   string // unique key column
	CountCol string // integer counter column
	TouchCol string // optional timestamp column refreshed on every increment
}

// ConditionalIncrementSQL builds an atomic capped increment:
//
//	INSERT INTO t (key, count[, touch]) VALUES (k, 1[, now])
//	ON CONFLICT (key) DO UPDATE SET count = t.count + 1[, touch = EXCLUDED.touch]
//	WHERE t.count < limit
//	RETURNING count
//
// Bind order is key, touch (when set), limit. No row is returned when the
// counter is already at the limit.
func ConditionalIncrementSQL(d Dialect, cfg CounterConfig) (string, error) {
	if cfg.Table == "" || cfg.KeyCol == "" || cfg.CountCol == "" {
		return "", eris.New("db: counter: table, key and count columns are required")
	}

	table := sanitizeTable(cfg.Table)
	key := pgx.Identifier{cfg.KeyCol}.Sanitize()
	count := pgx.Identifier{cfg.CountCol}.Sanitize()

	cols := []string{cfg.KeyCol, cfg.CountCol}
	values := []string{d.param(1), "1"}
	sets := []string{fmt.Sprintf("%s = %s.%s + 1", count, table, count)}
	next := 2
	if cfg.TouchCol != "" {
		touch := pgx.Identifier{cfg.TouchCol}.Sanitize()
		cols = append(cols, cfg.TouchCol)
		values = append(values, d.param(next))
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", touch, touch))
		next++
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s WHERE %s.%s < %s RETURNING %s",
		table,
		quoteAndJoin(cols),
		strings.Join(values, ", "),
		key,
		strings.Join(sets, ", "),
		table, count, d.param(next),
		count,
	), nil
}

// sanitizeTable handles schema-qualified table names like "app.usage".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
