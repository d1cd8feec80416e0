package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vnrates/ratecrawl/internal/config"
	"github.com/vnrates/ratecrawl/internal/db"
	"github.com/vnrates/ratecrawl/internal/fetcher"
	"github.com/vnrates/ratecrawl/internal/htmltable"
)

// MarginRoom collects the remaining margin-trading room per stock code from
// the FireAnt API. The endpoint wraps its JSON payload in HTML markup, so
// the body is rendered to text before field extraction. Unlike the
// single-document sources, a failing stock code is logged and skipped; the
// run persists whatever subset succeeded.
type MarginRoom struct {
	cfg config.FireantConfig
	now func() time.Time
}

// NewMarginRoom creates the margin-room source from the API settings.
func NewMarginRoom(cfg config.FireantConfig) *MarginRoom {
	return &MarginRoom{cfg: cfg, now: time.Now}
}

func (s *MarginRoom) Name() string  { return "margin-room" }
func (s *MarginRoom) Table() string { return "room_margin_detail" }

func (s *MarginRoom) Schema() string {
	return `CREATE TABLE IF NOT EXISTS room_margin_detail (
	date_time TIMESTAMP,
	stock_code TEXT,
	margin_room REAL,
	sector TEXT,
	PRIMARY KEY (date_time, stock_code)
)`
}

func (s *MarginRoom) Spec() db.UpsertSpec {
	return db.UpsertSpec{
		Table:        "room_margin_detail",
		Columns:      []string{"date_time", "stock_code", "margin_room", "sector"},
		ConflictKeys: []string{"date_time", "stock_code"},
	}
}

// Collect fetches every configured stock code sequentially. Per-code
// failures skip that code only; zero successes yields zero rows, which the
// engine treats as nothing to persist.
func (s *MarginRoom) Collect(ctx context.Context, f fetcher.Fetcher) ([][]any, error) {
	codes := s.cfg.Codes()
	if len(codes) == 0 {
		return nil, eris.New("marginroom: no stock codes configured")
	}

	log := zap.L().With(zap.String("source", s.Name()))

	var rows [][]any
	for _, code := range codes {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		room, sector, err := s.fetchOne(ctx, f, code)
		if err != nil {
			log.Warn("skipping stock code", zap.String("stock_code", code), zap.Error(err))
			continue
		}
		log.Info("fetched margin room",
			zap.String("stock_code", code),
			zap.Float64("margin_room", room),
		)
		rows = append(rows, []any{s.now().UTC().Truncate(time.Second), code, room, sector})
	}

	return rows, nil
}

// fetchOne retrieves and extracts one stock's margin room and sector.
func (s *MarginRoom) fetchOne(ctx context.Context, f fetcher.Fetcher, code string) (float64, string, error) {
	u := fmt.Sprintf("%s/stocks/%s", strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(code))
	if s.cfg.Token != "" {
		u += "?token=" + url.QueryEscape(s.cfg.Token)
	}

	body, err := f.Download(ctx, u)
	if err != nil {
		return 0, "", eris.Wrapf(err, "marginroom: fetch %s", code)
	}
	defer body.Close() //nolint:errcheck

	payload, err := htmltable.Text(body)
	if err != nil {
		return 0, "", eris.Wrapf(err, "marginroom: read response for %s", code)
	}

	room := jsonField(payload, "marginRoom", "margin_room")
	if !room.Exists() {
		return 0, "", eris.Errorf("marginroom: margin room not found for %s", code)
	}
	// Result.Float coerces non-numbers to 0; a placeholder like "n/a" must
	// skip the code, not persist a zero row.
	if room.Type != gjson.Number {
		return 0, "", eris.Errorf("marginroom: margin room for %s is not numeric: %s", code, room.Raw)
	}
	sector := jsonField(payload, "industryName", "sector")

	return room.Float(), sector.String(), nil
}

// jsonField returns the first present, non-null field among keys.
func jsonField(doc string, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := gjson.Get(doc, k); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}
