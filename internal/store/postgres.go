package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vnrates/ratecrawl/internal/db"
)

// PostgresStore implements Store using a pgx connection pool. The pool is
// scoped to one CLI invocation: opened by the command, closed on both
// success and failure paths.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore and verifies connectivity.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresCrawlLog = `
CREATE TABLE IF NOT EXISTS crawl_log (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	rows_written BIGINT NOT NULL DEFAULT 0,
	error        TEXT
)`

// Migrate creates the crawl_log table if absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresCrawlLog); err != nil {
		return eris.Wrap(err, "postgres: migrate crawl_log")
	}
	return nil
}

// EnsureTable issues an idempotent schema statement.
func (s *PostgresStore) EnsureTable(ctx context.Context, ddl string) error {
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrap(err, "postgres: ensure table")
	}
	return nil
}

// Upsert writes all rows in one transaction via INSERT ... ON CONFLICT.
func (s *PostgresStore) Upsert(ctx context.Context, spec db.UpsertSpec, rows [][]any) (int64, error) {
	return db.UpsertRows(ctx, s.pool, spec, rows)
}

// StartRun records the beginning of a crawl run and returns its ID.
func (s *PostgresStore) StartRun(ctx context.Context, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crawl_log (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, source, string(RunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for %s", source)
	}
	return id, nil
}

// CompleteRun marks a crawl run as successfully completed.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, rowsWritten int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_log SET status = $1, completed_at = $2, rows_written = $3 WHERE id = $4`,
		string(RunComplete), time.Now().UTC(), rowsWritten, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return nil
}

// FailRun marks a crawl run as failed with an error message.
func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_log SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(RunFailed), time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	return nil
}

// ListRuns returns the most recent crawl runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, started_at, completed_at, rows_written, error
		 FROM crawl_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var status string
		var completedAt *time.Time
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Source, &status, &e.StartedAt, &completedAt, &e.RowsWritten, &errStr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run entry")
		}
		e.Status = RunStatus(status)
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return entries, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
