package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vnrates/ratecrawl/internal/db"
)

// SQLiteStore implements Store using modernc.org/sqlite for local runs
// without a Postgres instance. Time values are stored as RFC 3339 text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at the given path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, eris.New("sqlite: path is required")
	}

	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	d.SetMaxOpenConns(1)

	return &SQLiteStore{db: d}, nil
}

const sqliteCrawlLog = `
CREATE TABLE IF NOT EXISTS crawl_log (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	rows_written INTEGER NOT NULL DEFAULT 0,
	error        TEXT
)`

// Migrate creates the crawl_log table if absent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteCrawlLog); err != nil {
		return eris.Wrap(err, "sqlite: migrate crawl_log")
	}
	return nil
}

// EnsureTable issues an idempotent schema statement.
func (s *SQLiteStore) EnsureTable(ctx context.Context, ddl string) error {
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return eris.Wrap(err, "sqlite: ensure table")
	}
	return nil
}

// Upsert writes all rows in one transaction via INSERT ... ON CONFLICT.
func (s *SQLiteStore) Upsert(ctx context.Context, spec db.UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, err := spec.SQL(db.QuestionPlaceholder)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare upsert for %s", spec.Table)
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, row := range rows {
		if len(row) != len(spec.Columns) {
			return 0, eris.Errorf("sqlite: upsert: row has %d values, want %d for %s", len(row), len(spec.Columns), spec.Table)
		}
		res, err := stmt.ExecContext(ctx, bindValues(row)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert into %s", spec.Table)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return n, nil
}

// StartRun records the beginning of a crawl run and returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawl_log (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, source, string(RunRunning), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start run for %s", source)
	}
	return id, nil
}

// CompleteRun marks a crawl run as successfully completed.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, rowsWritten int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE crawl_log SET status = ?, completed_at = ?, rows_written = ? WHERE id = ?`,
		string(RunComplete), time.Now().UTC().Format(time.RFC3339Nano), rowsWritten, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return nil
}

// FailRun marks a crawl run as failed with an error message.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE crawl_log SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(RunFailed), time.Now().UTC().Format(time.RFC3339Nano), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return nil
}

// ListRuns returns the most recent crawl runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, started_at, completed_at, rows_written, error
		 FROM crawl_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var status, startedAt string
		var completedAt, errStr sql.NullString
		if err := rows.Scan(&e.ID, &e.Source, &status, &startedAt, &completedAt, &e.RowsWritten, &errStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run entry")
		}
		e.Status = RunStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			e.StartedAt = t
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
				e.CompletedAt = &t
			}
		}
		if errStr.Valid {
			e.Error = errStr.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// bindValues normalizes row values for the sqlite driver; time.Time becomes
// RFC 3339 text so primary-key equality holds across runs.
func bindValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if t, ok := v.(time.Time); ok {
			out[i] = t.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[i] = v
	}
	return out
}
