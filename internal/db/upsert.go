package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertSpec defines the parameters for a primary-key upsert.
type UpsertSpec struct {
	Table        string   // target table (e.g., "fx_rate")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the primary key
}

// Placeholder renders the i-th (1-based) bind parameter for a driver.
type Placeholder func(i int) string

// PostgresPlaceholder renders $1, $2, ...
func PostgresPlaceholder(i int) string { return fmt.Sprintf("$%d", i) }

// QuestionPlaceholder renders ? for database/sql drivers.
func QuestionPlaceholder(i int) string { return "?" }

// SQL builds the INSERT ... ON CONFLICT (keys) DO UPDATE SET statement for
// one row. Every non-key column is overwritten from EXCLUDED on conflict.
func (s UpsertSpec) SQL(ph Placeholder) (string, error) {
	if len(s.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(s.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	conflictSet := make(map[string]bool, len(s.ConflictKeys))
	for _, k := range s.ConflictKeys {
		conflictSet[k] = true
	}
	var setClauses []string
	for _, col := range s.Columns {
		if conflictSet[col] {
			continue
		}
		q := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	if len(setClauses) == 0 {
		return "", eris.Errorf("db: upsert: no non-key columns for %s", s.Table)
	}

	placeholders := make([]string, len(s.Columns))
	for i := range s.Columns {
		placeholders[i] = ph(i + 1)
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(s.Table),
		quoteAndJoin(s.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(s.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	return sql, nil
}

// UpsertRows upserts all rows inside a single transaction. Either every row
// is committed or none are.
func UpsertRows(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	sql, err := spec.SQL(PostgresPlaceholder)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var n int64
	for _, row := range rows {
		if len(row) != len(spec.Columns) {
			return 0, eris.Errorf("db: upsert: row has %d values, want %d for %s", len(row), len(spec.Columns), spec.Table)
		}
		tag, err := tx.Exec(ctx, sql, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", spec.Table)
		}
		n += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return n, nil
}

// sanitizeTable handles schema-qualified table names like "rates.fx_rate".
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
