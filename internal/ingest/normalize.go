package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a pt-BR formatted currency string: "." groups thousands
// and "," separates decimals, so "1.234,56" is 1234.56 and "1.234" is 1234.
// An optional "R$" prefix is ignored. The result is rounded to two places.
// ok is false for empty or malformed input.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// ParseUnits reads a unit count. Values with a decimal comma use the same
// format as ParseAmount; anything else must be a plain number. Negative
// counts are rejected.
func ParseUnits(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	var (
		d  decimal.Decimal
		ok bool
	)
	if strings.Contains(s, ",") {
		d, ok = ParseAmount(s)
	} else {
		d, ok = plainDecimal(s)
	}
	if !ok || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

func plainDecimal(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// day-first layouts; ISO dates are accepted as well
var dateLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"2-1-2006 15:04:05",
	"2.1.2006",
	"2/1/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a day-first date and truncates it to its calendar day in UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dayUTC(t), true
		}
	}
	return time.Time{}, false
}

func NormalizeStatus(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func dayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
