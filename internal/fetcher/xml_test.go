package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exrateRow struct {
	CurrencyCode string `xml:"CurrencyCode,attr"`
	Sell         string `xml:"Sell,attr"`
}

func TestDecodeXML_Attributes(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<ExrateList>
  <DateTime>8/31/2026 9:00:00 AM</DateTime>
  <Exrate CurrencyCode="USD" Buy="25,100.00" Sell="25,450.00"/>
  <Exrate CurrencyCode="CNY" Buy="3,480.00" Sell="3,520.00"/>
  <Source>Joint Stock Commercial Bank</Source>
</ExrateList>`

	rows, err := DecodeXML[exrateRow](strings.NewReader(doc), "Exrate")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "USD", rows[0].CurrencyCode)
	assert.Equal(t, "25,450.00", rows[0].Sell)
	assert.Equal(t, "CNY", rows[1].CurrencyCode)
}

func TestDecodeXML_NoMatches(t *testing.T) {
	rows, err := DecodeXML[exrateRow](strings.NewReader(`<root><Other/></root>`), "Exrate")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeXML_Malformed(t *testing.T) {
	_, err := DecodeXML[exrateRow](strings.NewReader(`<root><Exrate`), "Exrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml:")
}

func TestDecodeXML_DeclaredCharset(t *testing.T) {
	doc := `<?xml version="1.0" encoding="windows-1252"?>
<root><Exrate CurrencyCode="USD" Sell="1.00"/></root>`

	rows, err := DecodeXML[exrateRow](strings.NewReader(doc), "Exrate")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
