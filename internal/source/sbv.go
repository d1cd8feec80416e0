package source

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/db"
	"github.com/vnrates/ratecrawl/internal/fetcher"
	"github.com/vnrates/ratecrawl/internal/htmltable"
)

// SBV scrapes the overnight and one-week interbank rates from the central
// bank's published table. Row labels are single terms, so matching is on
// the leading cell: "O/N" for overnight, "1W" or the localized "1 Tuần"
// for one week. Rates carry day granularity.
type SBV struct {
	url string
	now func() time.Time
}

// NewSBV creates the interbank-rate source for the given page URL.
func NewSBV(url string) *SBV {
	return &SBV{url: url, now: time.Now}
}

func (s *SBV) Name() string  { return "sbv-interbank" }
func (s *SBV) Table() string { return "on_rate" }

func (s *SBV) Schema() string {
	return `CREATE TABLE IF NOT EXISTS on_rate (
	date_time DATE PRIMARY KEY,
	on_rate REAL,
	onew_rate REAL
)`
}

func (s *SBV) Spec() db.UpsertSpec {
	return db.UpsertSpec{
		Table:        "on_rate",
		Columns:      []string{"date_time", "on_rate", "onew_rate"},
		ConflictKeys: []string{"date_time"},
	}
}

// Collect scans the first table for both tenors, stopping early once found.
// Either tenor missing after the scan aborts the run.
func (s *SBV) Collect(ctx context.Context, f fetcher.Fetcher) ([][]any, error) {
	body, err := f.Download(ctx, s.url)
	if err != nil {
		return nil, eris.Wrap(err, "sbv: fetch page")
	}
	defer body.Close() //nolint:errcheck

	tbl, err := htmltable.Parse(body)
	if err != nil {
		return nil, eris.Wrap(err, "sbv: parse page")
	}

	var on, onew *float64
	for _, cells := range tbl.Rows {
		// A row without a value cell is treated as non-matching even when
		// its label matches; the scan keeps looking.
		if len(cells) < 2 {
			continue
		}
		label := cells[0]
		switch {
		case on == nil && strings.Contains(label, "O/N"):
			v, err := DecimalComma.Parse(cells[1])
			if err != nil {
				return nil, eris.Wrap(err, "sbv: overnight rate")
			}
			on = &v
		case onew == nil && (strings.Contains(label, "1W") || strings.Contains(label, "1 Tuần")):
			v, err := DecimalComma.Parse(cells[1])
			if err != nil {
				return nil, eris.Wrap(err, "sbv: one-week rate")
			}
			onew = &v
		}
		if on != nil && onew != nil {
			break
		}
	}

	if on == nil || onew == nil {
		return nil, eris.New("sbv: could not parse rates from page")
	}

	zap.L().Info("fetched interbank rates",
		zap.String("source", s.Name()),
		zap.Float64("on_rate", *on),
		zap.Float64("onew_rate", *onew),
	)

	at := s.now().UTC()
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return [][]any{{day, *on, *onew}}, nil
}
