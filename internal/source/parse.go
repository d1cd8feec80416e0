package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// NumberFormat is the locale rule for converting a published numeric string.
// The two conventions are mutually incompatible, so every source declares
// its own rule instead of sharing a global one.
type NumberFormat int

const (
	// DecimalComma reads "1.234,56" as 1234.56: dot is a grouping
	// separator, comma is the decimal mark. Used by the HTML sources.
	DecimalComma NumberFormat = iota

	// ThousandsComma reads "1,234.56" as 1234.56: comma is a grouping
	// separator. Used by the XML feed.
	ThousandsComma
)

// Parse converts raw under the format's rule. It fails on anything that is
// not a finite number after the transform, keeping the offending raw value
// in the error for the logs.
func (f NumberFormat) Parse(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	switch f {
	case DecimalComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case ThousandsComma:
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, eris.Errorf("parse: cannot parse rate value %q", raw)
	}
	return v, nil
}
