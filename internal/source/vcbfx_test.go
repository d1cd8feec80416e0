package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnrates/ratecrawl/internal/fetcher"
)

const vcbFeed = `<?xml version="1.0" encoding="utf-8"?>
<ExrateList>
  <DateTime>8/31/2026 9:00:00 AM</DateTime>
  <Exrate CurrencyCode="AUD" Buy="16,100.00" Sell="16,600.00"/>
  <Exrate CurrencyCode="USD" Buy="25,100.00" Sell="25,450.00"/>
  <Exrate CurrencyCode="CNY" Buy="3,480.00" Sell="3,520.00"/>
</ExrateList>`

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second})
}

func TestVCBFX_Collect(t *testing.T) {
	srv := serveBody(t, vcbFeed)

	s := NewVCBFX(srv.URL)
	at := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	rows, err := s.Collect(context.Background(), testFetcher())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{at, 25450.0, 3520.0}, rows[0])
}

func TestVCBFX_MissingCurrencyAbortsRun(t *testing.T) {
	srv := serveBody(t, `<ExrateList><Exrate CurrencyCode="USD" Sell="25,450.00"/></ExrateList>`)

	s := NewVCBFX(srv.URL)
	rows, err := s.Collect(context.Background(), testFetcher())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CNY rate not found")
	assert.Nil(t, rows)
}

func TestVCBFX_DuplicateCurrencyAbortsRun(t *testing.T) {
	srv := serveBody(t, `<ExrateList>
  <Exrate CurrencyCode="USD" Sell="25,450.00"/>
  <Exrate CurrencyCode="USD" Sell="25,500.00"/>
  <Exrate CurrencyCode="CNY" Sell="3,520.00"/>
</ExrateList>`)

	s := NewVCBFX(srv.URL)
	_, err := s.Collect(context.Background(), testFetcher())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USD rate not found")
}

func TestVCBFX_UnparseableSellValue(t *testing.T) {
	srv := serveBody(t, `<ExrateList>
  <Exrate CurrencyCode="USD" Sell="n/a"/>
  <Exrate CurrencyCode="CNY" Sell="3,520.00"/>
</ExrateList>`)

	s := NewVCBFX(srv.URL)
	_, err := s.Collect(context.Background(), testFetcher())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"n/a"`)
}

func TestVCBFX_HTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewVCBFX(srv.URL)
	_, err := s.Collect(context.Background(), testFetcher())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vcbfx: fetch feed")
}
