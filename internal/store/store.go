// Package store persists extracted rate records and the crawl run log.
package store

import (
	"context"
	"time"

	"github.com/vnrates/ratecrawl/internal/db"
)

// RunStatus is the lifecycle state of one crawl run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// RunEntry is one row of the crawl_log table.
type RunEntry struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RowsWritten int64      `json:"rows_written"`
	Error       string     `json:"error,omitempty"`
}

// Store defines the persistence interface for the crawl pipeline.
type Store interface {
	// EnsureTable issues an idempotent schema statement for a source's
	// target table before the first upsert.
	EnsureTable(ctx context.Context, ddl string) error

	// Upsert writes all rows in a single transaction, replacing non-key
	// columns on primary-key conflict. Returns the number of rows written.
	Upsert(ctx context.Context, spec db.UpsertSpec, rows [][]any) (int64, error)

	// Crawl run log
	StartRun(ctx context.Context, source string) (string, error)
	CompleteRun(ctx context.Context, runID string, rowsWritten int64) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]RunEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
