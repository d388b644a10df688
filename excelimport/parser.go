package excelimport

import (
	"fmt"
	"io"
	"strings"

	"bitbucket.org/puretradeops/logistics_backend/models"
	"github.com/xuri/excelize/v2"
)

// ParsedRow is the unit handed to the classifier and the executor: one master
// file line with its natural key and the coerced canonical fields. Err is set
// when the row cannot be reconciled at all (no order number); such rows are
// counted and reported but never written.
type ParsedRow struct {
	RowNumber int
	Key       *NaturalKey
	Fields    map[string]any
	Err       string
}

func (r *ParsedRow) Reference() string {
	if r.Key == nil {
		return ""
	}
	return r.Key.Reference()
}

// DecodeWorkbook reads the first sheet of an .xlsx master file into label →
// raw-cell rows plus the list of column labels observed. A workbook that
// cannot be opened at all is a fatal error: no partial result is produced.
func DecodeWorkbook(r io.Reader) ([]map[string]string, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	return decodeSheet(f, sheets[0])
}

func decodeSheet(f *excelize.File, sheet string) ([]map[string]string, []string, error) {
	// Raw values: native date cells must surface as their stored serial, not
	// as a locale-formatted rendering no coercion layout matches.
	cells, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(cells) == 0 {
		return nil, nil, nil
	}

	labels := make([]string, 0, len(cells[0]))
	for _, h := range cells[0] {
		labels = append(labels, strings.TrimSpace(h))
	}

	rows := make([]map[string]string, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(map[string]string, len(labels))
		for i, label := range labels {
			if label == "" || i >= len(line) {
				continue
			}
			if _, dup := row[label]; dup {
				continue
			}
			row[label] = line[i]
		}
		rows = append(rows, row)
	}
	return rows, labels, nil
}

// ParseRows maps every raw row onto the canonical schema. Coercion failures
// degrade to absent fields; only a missing order number marks the row itself
// as an error.
func ParseRows(rows []map[string]string) []*ParsedRow {
	parsed := make([]*ParsedRow, 0, len(rows))
	for i, row := range rows {
		// +2: spreadsheet rows are 1-indexed and the header occupies row 1.
		parsed = append(parsed, parseRow(i+2, row))
	}
	return parsed
}

func parseRow(rowNumber int, row map[string]string) *ParsedRow {
	out := &ParsedRow{RowNumber: rowNumber, Fields: map[string]any{}}

	batchRaw, ok := row["batch"]
	if !ok {
		batchRaw = row["BATCH"]
	}
	out.Key = BuildKey(rawCell(row, "Order number"), batchRaw)
	if out.Key == nil {
		out.Err = "missing order number"
		return out
	}

	for _, m := range columnMappings {
		raw, present := row[m.Label]
		if !present {
			continue
		}
		if _, done := out.Fields[m.Field]; done {
			// A later alias never overrides the first matched label.
			continue
		}
		if v, ok := Coerce(raw, kindOf(m.Field)); ok {
			out.Fields[m.Field] = v
		}
	}

	// Key fields are written back in normalized form so order_number/
	// batch_number always agree with the reference projection.
	out.Fields["order_number"] = out.Key.Order
	if out.Key.Batch != "" {
		out.Fields["batch_number"] = out.Key.Batch
	}

	// The master file has no origin/destination columns of its own; they
	// mirror the loading place and port of discharge.
	if v, ok := out.Fields["loading_place"]; ok {
		out.Fields["origin"] = v
	}
	if v, ok := out.Fields["pod"]; ok {
		out.Fields["destination"] = v
	}

	inferStatus(out)
	return out
}

func rawCell(row map[string]string, label string) any {
	v, ok := row[label]
	if !ok {
		return nil
	}
	return v
}

// inferStatus reads the free-text departure column: the ops team writes
// variants of "ON BOARD" or "EN TRANSIT" once the container is on the water.
func inferStatus(row *ParsedRow) {
	dep, ok := row.Fields["departure_stat"].(string)
	if !ok {
		return
	}
	up := strings.ToUpper(dep)
	if strings.Contains(up, "ON BOARD") || strings.Contains(up, "TRANSIT") {
		row.Fields["status"] = models.ShipmentStatusTransitOcean
	}
}
