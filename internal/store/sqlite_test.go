package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnrates/ratecrawl/internal/db"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "ratecrawl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var fxRateSpec = db.UpsertSpec{
	Table:        "fx_rate",
	Columns:      []string{"date_time", "usd_vnd", "cny_vnd"},
	ConflictKeys: []string{"date_time"},
}

const fxRateDDL = `CREATE TABLE IF NOT EXISTS fx_rate (date_time TIMESTAMP PRIMARY KEY, usd_vnd REAL, cny_vnd REAL)`

func TestSQLiteStore_UpsertIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureTable(ctx, fxRateDDL))

	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	// Same primary key and fields twice: still exactly one row.
	for range 2 {
		_, err := s.Upsert(ctx, fxRateSpec, [][]any{{at, 25450.0, 3520.0}})
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM fx_rate`).Scan(&count))
	assert.Equal(t, 1, count)

	// Changed non-key fields under the same key: overwritten, not duplicated.
	_, err := s.Upsert(ctx, fxRateSpec, [][]any{{at, 25460.0, 3521.0}})
	require.NoError(t, err)

	var usd, cny float64
	require.NoError(t, s.db.QueryRow(`SELECT usd_vnd, cny_vnd FROM fx_rate`).Scan(&usd, &cny))
	assert.Equal(t, 25460.0, usd)
	assert.Equal(t, 3521.0, cny)

	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM fx_rate`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_UpsertCompositeKey(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureTable(ctx, `CREATE TABLE IF NOT EXISTS room_margin_detail (
		date_time TIMESTAMP,
		stock_code TEXT,
		margin_room REAL,
		sector TEXT,
		PRIMARY KEY (date_time, stock_code)
	)`))

	spec := db.UpsertSpec{
		Table:        "room_margin_detail",
		Columns:      []string{"date_time", "stock_code", "margin_room", "sector"},
		ConflictKeys: []string{"date_time", "stock_code"},
	}

	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	n, err := s.Upsert(ctx, spec, [][]any{
		{at, "HPG", 1200000.0, "Steel"},
		{at, "VCB", 800000.0, "Banking"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Same timestamp, same code: replaces. Different code: new row.
	_, err = s.Upsert(ctx, spec, [][]any{{at, "HPG", 900000.0, "Steel"}})
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM room_margin_detail`).Scan(&count))
	assert.Equal(t, 2, count)

	var room float64
	require.NoError(t, s.db.QueryRow(`SELECT margin_room FROM room_margin_detail WHERE stock_code = 'HPG'`).Scan(&room))
	assert.Equal(t, 900000.0, room)
}

func TestSQLiteStore_UpsertEmptyIsNoop(t *testing.T) {
	s := newTestSQLiteStore(t)

	n, err := s.Upsert(context.Background(), fxRateSpec, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	id1, err := s.StartRun(ctx, "vcb-fx")
	require.NoError(t, err)
	id2, err := s.StartRun(ctx, "sbv-interbank")
	require.NoError(t, err)

	require.NoError(t, s.CompleteRun(ctx, id1, 1))
	require.NoError(t, s.FailRun(ctx, id2, "could not parse rates from page"))

	entries, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byID := map[string]RunEntry{}
	for _, e := range entries {
		byID[e.ID] = e
	}
	assert.Equal(t, RunComplete, byID[id1].Status)
	assert.Equal(t, int64(1), byID[id1].RowsWritten)
	require.NotNil(t, byID[id1].CompletedAt)
	assert.Equal(t, RunFailed, byID[id2].Status)
	assert.Equal(t, "could not parse rates from page", byID[id2].Error)
}

func TestNewSQLite_RequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	require.Error(t, err)
}
