// Package source implements the scrape pipeline: each Source fetches one
// published rate document, extracts and normalizes its numeric fields, and
// hands timestamped rows to the store for an idempotent upsert.
package source

import (
	"context"

	"github.com/vnrates/ratecrawl/internal/db"
	"github.com/vnrates/ratecrawl/internal/fetcher"
)

// Source describes one scrape target: where to fetch, how to extract rows,
// and the table those rows land in.
type Source interface {
	// Name returns the unique identifier for this source (e.g., "vcb-fx").
	Name() string

	// Table returns the target table (e.g., "fx_rate").
	Table() string

	// Schema returns the idempotent CREATE statement for Table, declaring
	// its primary key.
	Schema() string

	// Spec declares the upsert columns and conflict keys for Table.
	Spec() db.UpsertSpec

	// Collect runs fetch, parse, and normalize, returning persistable rows
	// in Spec().Columns order. Single-document sources fail as a whole on
	// any missing field; multi-entity sources may return a partial set.
	Collect(ctx context.Context, f fetcher.Fetcher) ([][]any, error)
}
