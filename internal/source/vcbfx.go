package source

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/db"
	"github.com/vnrates/ratecrawl/internal/fetcher"
)

// VCBFX scrapes USD/VND and CNY/VND sell rates from the bank's XML feed.
// The feed is a flat list of Exrate elements keyed by currency code.
type VCBFX struct {
	url string
	now func() time.Time
}

// NewVCBFX creates the XML FX source for the given feed URL.
func NewVCBFX(url string) *VCBFX {
	return &VCBFX{url: url, now: time.Now}
}

func (s *VCBFX) Name() string  { return "vcb-fx" }
func (s *VCBFX) Table() string { return "fx_rate" }

func (s *VCBFX) Schema() string {
	return `CREATE TABLE IF NOT EXISTS fx_rate (
	date_time TIMESTAMP PRIMARY KEY,
	usd_vnd REAL,
	cny_vnd REAL
)`
}

func (s *VCBFX) Spec() db.UpsertSpec {
	return db.UpsertSpec{
		Table:        "fx_rate",
		Columns:      []string{"date_time", "usd_vnd", "cny_vnd"},
		ConflictKeys: []string{"date_time"},
	}
}

type exrate struct {
	CurrencyCode string `xml:"CurrencyCode,attr"`
	Sell         string `xml:"Sell,attr"`
}

// Collect fetches the feed and extracts both sell rates. A missing currency
// aborts the whole run; no partial record is produced.
func (s *VCBFX) Collect(ctx context.Context, f fetcher.Fetcher) ([][]any, error) {
	body, err := f.Download(ctx, s.url)
	if err != nil {
		return nil, eris.Wrap(err, "vcbfx: fetch feed")
	}
	defer body.Close() //nolint:errcheck

	rows, err := fetcher.DecodeXML[exrate](body, "Exrate")
	if err != nil {
		return nil, eris.Wrap(err, "vcbfx: parse feed")
	}

	usd, err := sellRate(rows, "USD")
	if err != nil {
		return nil, err
	}
	cny, err := sellRate(rows, "CNY")
	if err != nil {
		return nil, err
	}

	zap.L().Info("fetched fx rates",
		zap.String("source", s.Name()),
		zap.Float64("usd_vnd", usd),
		zap.Float64("cny_vnd", cny),
	)

	return [][]any{{s.now().UTC().Truncate(time.Second), usd, cny}}, nil
}

// sellRate finds the single row for a currency code and normalizes its sell
// price. Zero or multiple matches both count as not found.
func sellRate(rows []exrate, code string) (float64, error) {
	var match *exrate
	for i := range rows {
		if rows[i].CurrencyCode != code {
			continue
		}
		if match != nil {
			return 0, eris.Errorf("vcbfx: %s rate not found", code)
		}
		match = &rows[i]
	}
	if match == nil {
		return 0, eris.Errorf("vcbfx: %s rate not found", code)
	}
	return ThousandsComma.Parse(match.Sell)
}
