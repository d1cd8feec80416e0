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

// FXBoard scrapes USD/VND and USD/CNY sell rates from an HTML rate board.
// The site rearranges its table markup without notice, so row matching is a
// deliberately loose two-tier policy: the exact "USD/VND" label first, then
// both tokens anywhere in the row. That trades the ability to disambiguate
// multiple tables or duplicate rows for resilience to markup churn.
type FXBoard struct {
	url string
	now func() time.Time
}

// NewFXBoard creates the HTML FX source for the given page URL.
func NewFXBoard(url string) *FXBoard {
	return &FXBoard{url: url, now: time.Now}
}

func (s *FXBoard) Name() string  { return "fx-board" }
func (s *FXBoard) Table() string { return "fx_cross_rate" }

func (s *FXBoard) Schema() string {
	return `CREATE TABLE IF NOT EXISTS fx_cross_rate (
	date_time TIMESTAMP PRIMARY KEY,
	usd_vnd REAL,
	usd_cny REAL
)`
}

func (s *FXBoard) Spec() db.UpsertSpec {
	return db.UpsertSpec{
		Table:        "fx_cross_rate",
		Columns:      []string{"date_time", "usd_vnd", "usd_cny"},
		ConflictKeys: []string{"date_time"},
	}
}

// currencyPair is one target row label on the board.
type currencyPair struct {
	base, quote string
}

func (p currencyPair) label() string { return p.base + "/" + p.quote }

// matches tests the uppercased row text against the exact composite label,
// falling back to requiring both component tokens.
func (p currencyPair) matches(rowText string) bool {
	if strings.Contains(rowText, p.label()) {
		return true
	}
	return strings.Contains(rowText, p.base) && strings.Contains(rowText, p.quote)
}

// Collect scans the first table of the page for both currency pairs. The
// value is the second cell of the first matching row; a pair left unmatched
// after the whole scan aborts the run.
func (s *FXBoard) Collect(ctx context.Context, f fetcher.Fetcher) ([][]any, error) {
	if s.url == "" {
		return nil, eris.New("fxboard: url not configured")
	}

	body, err := f.Download(ctx, s.url)
	if err != nil {
		return nil, eris.Wrap(err, "fxboard: fetch page")
	}
	defer body.Close() //nolint:errcheck

	tbl, err := htmltable.Parse(body)
	if err != nil {
		return nil, eris.Wrap(err, "fxboard: parse page")
	}

	pairs := []currencyPair{{"USD", "VND"}, {"USD", "CNY"}}
	vals := make(map[currencyPair]float64, len(pairs))

	for _, cells := range tbl.Rows {
		// A row without a value cell is treated as non-matching even when
		// its label matches; the scan keeps looking.
		if len(cells) < 2 {
			continue
		}
		rowText := strings.ToUpper(strings.Join(cells, " "))
		for _, p := range pairs {
			if _, found := vals[p]; found {
				continue
			}
			if !p.matches(rowText) {
				continue
			}
			v, err := DecimalComma.Parse(cells[1])
			if err != nil {
				return nil, eris.Wrapf(err, "fxboard: %s", p.label())
			}
			vals[p] = v
		}
		if len(vals) == len(pairs) {
			break
		}
	}

	if len(vals) != len(pairs) {
		return nil, eris.New("fxboard: could not parse rates from page")
	}

	usdVND := vals[pairs[0]]
	usdCNY := vals[pairs[1]]
	zap.L().Info("fetched fx cross rates",
		zap.String("source", s.Name()),
		zap.Float64("usd_vnd", usdVND),
		zap.Float64("usd_cny", usdCNY),
	)

	return [][]any{{s.now().UTC().Truncate(time.Second), usdVND, usdCNY}}, nil
}
