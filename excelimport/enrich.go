package excelimport

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// The partner's "on board" workbook joins to the master file on its REF
// column and contributes these supplementary fields.
var enrichmentMappings = []ColumnMapping{
	{"INTERLOCUTEUR", "interlocuteur"},
	{"RESPONSABLE DE COMPTE PURE TRADE", "responsable_pure_trade"},
	{"NBR DE PALETTE", "nb_pallets"},
}

const enrichmentKeyLabel = "REF"

// DecodeEnrichment reads the secondary workbook into an index keyed by the
// normalized REF. The sheet whose name mentions "ON BOARD" is preferred;
// otherwise the first sheet is used. Duplicate REFs keep the last row, the
// partner appends corrections at the bottom.
func DecodeEnrichment(r io.Reader) (map[string]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open enrichment workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("enrichment workbook has no sheets")
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if strings.Contains(strings.ToUpper(s), "ON BOARD") {
			sheet = s
			break
		}
	}

	rows, _, err := decodeSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	index := make(map[string]map[string]string, len(rows))
	for _, row := range rows {
		key := normalizeKeyPart(rawCell(row, enrichmentKeyLabel))
		if key == "" {
			continue
		}
		index[key] = row
	}
	return index, nil
}

// MergeEnrichment left-joins the enrichment index onto the parsed rows by
// order key. Primary rows without a match pass through untouched, and a field
// already populated from the master file is never overwritten.
func MergeEnrichment(rows []*ParsedRow, index map[string]map[string]string) {
	if len(index) == 0 {
		return
	}
	for _, row := range rows {
		if row.Key == nil {
			continue
		}
		src, ok := index[row.Key.Order]
		if !ok {
			continue
		}
		if _, done := row.Fields["pure_trade_ref"]; !done {
			row.Fields["pure_trade_ref"] = row.Key.Order
		}
		for _, m := range enrichmentMappings {
			raw, present := src[m.Label]
			if !present {
				continue
			}
			if _, done := row.Fields[m.Field]; done {
				continue
			}
			if v, ok := Coerce(raw, kindOf(m.Field)); ok {
				row.Fields[m.Field] = v
			}
		}
	}
}
