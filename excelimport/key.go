package excelimport

import (
	"strconv"
	"strings"
)

// NaturalKey identifies a shipment across imports: the order number plus an
// optional batch. Batch is empty when the order has a single consignment.
type NaturalKey struct {
	Order string
	Batch string
}

// Reference is the human-readable projection of the key, stored on the
// shipment and unique across the store.
func (k NaturalKey) Reference() string {
	if k.Batch == "" {
		return k.Order
	}
	return k.Order + "-" + k.Batch
}

// BuildKey derives the natural key from the raw order and batch cells.
// Returns nil when the order number is missing: such a row cannot be
// reconciled and must be reported, never silently dropped.
func BuildKey(orderRaw, batchRaw any) *NaturalKey {
	order := normalizeKeyPart(orderRaw)
	if order == "" {
		return nil
	}
	return &NaturalKey{Order: order, Batch: normalizeKeyPart(batchRaw)}
}

// normalizeKeyPart renders a key cell as a stable string. Spreadsheets type
// whole numbers as floats, so "1.0" and "1" must normalize to the same key
// or re-imports would duplicate shipments.
func normalizeKeyPart(raw any) string {
	if isNullCell(raw) {
		return ""
	}
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if f, err := parseFloatCell(s); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return s
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
