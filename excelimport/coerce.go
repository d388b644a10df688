package excelimport

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dates whose calendar year falls outside this window are almost always a
// misread spreadsheet serial, so they degrade to null instead of poisoning
// the shipment record.
const (
	minPlausibleYear = 2000
	maxPlausibleYear = 2100
)

// Excel stores dates as days since this epoch (with the historical leap-year
// quirk already folded in).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Coerce converts a raw cell value into the declared kind. It never returns
// an error: a blank cell, a "#N/A" sentinel or an unparseable value all come
// back as (nil, false). Only missing mandatory fields are surfaced later by
// the row parser.
func Coerce(raw any, kind FieldKind) (any, bool) {
	if isNullCell(raw) {
		return nil, false
	}
	switch kind {
	case FieldKindText:
		return coerceText(raw)
	case FieldKindInteger:
		return coerceInt(raw)
	case FieldKindDecimal:
		return coerceDecimal(raw)
	case FieldKindDate:
		return coerceDate(raw)
	}
	return nil, false
}

func isNullCell(raw any) bool {
	if raw == nil {
		return true
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		switch s {
		case "", "#N/A", "N/A", "nan", "NaN":
			return true
		}
	}
	return false
}

func coerceText(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, false
		}
		return s, true
	case time.Time:
		return v.Format("2006-01-02"), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	}
	return nil, false
}

func coerceInt(raw any) (any, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		f, err := parseFloatCell(v)
		if err != nil {
			return nil, false
		}
		return int(f), true
	}
	return nil, false
}

func coerceDecimal(raw any) (any, bool) {
	switch v := raw.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(normalizeNumericCell(v))
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func coerceDate(raw any) (any, bool) {
	switch v := raw.(type) {
	case time.Time:
		return dateInWindow(v)
	case float64:
		return serialToDate(v)
	case int:
		return serialToDate(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if t, ok := parseTextualDate(s); ok {
			return dateInWindow(t)
		}
		// Unformatted date cells surface as the bare serial number.
		if f, err := parseFloatCell(s); err == nil {
			return serialToDate(f)
		}
		return nil, false
	}
	return nil, false
}

// Master files come from a French-locale ops team: day-first forms dominate,
// with the ISO form appearing after round trips through other tools.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

func parseTextualDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func serialToDate(serial float64) (any, bool) {
	if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
		return nil, false
	}
	days := int(serial)
	frac := serial - float64(days)
	t := excelEpoch.AddDate(0, 0, days).Add(time.Duration(frac * 24 * float64(time.Hour)))
	return dateInWindow(t)
}

func dateInWindow(t time.Time) (any, bool) {
	if t.Year() < minPlausibleYear || t.Year() > maxPlausibleYear {
		return nil, false
	}
	return t, true
}

func parseFloatCell(s string) (float64, error) {
	return strconv.ParseFloat(normalizeNumericCell(s), 64)
}

// normalizeNumericCell accepts the one-decimal-separator convention of the
// source files: "1 234,5" and "1234.5" both parse.
func normalizeNumericCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}
