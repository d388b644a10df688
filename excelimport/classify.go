package excelimport

import (
	"time"

	"bitbucket.org/puretradeops/logistics_backend/models"
)

// PreviewRow is what the operator sees before committing an import.
type PreviewRow struct {
	RowNumber   int              `json:"row_number"`
	Reference   string           `json:"reference,omitempty"`
	Customer    string           `json:"customer,omitempty"`
	OrderNumber string           `json:"order_number,omitempty"`
	PlannedEtd  *time.Time       `json:"planned_etd,omitempty"`
	Status      models.RowStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
}

// Classify labels every parsed row as new, update or error against the set of
// references already in the store. It is pure: the executor applies exactly
// the same key rule, so a preview and a subsequent execute never diverge.
func Classify(rows []*ParsedRow, existing map[string]bool) []*PreviewRow {
	preview := make([]*PreviewRow, 0, len(rows))
	for _, row := range rows {
		p := &PreviewRow{
			RowNumber: row.RowNumber,
			Reference: row.Reference(),
			Error:     row.Err,
		}
		switch {
		case row.Err != "" || row.Key == nil:
			p.Status = models.RowStatusError
		case existing[p.Reference]:
			p.Status = models.RowStatusUpdate
		default:
			p.Status = models.RowStatusNew
		}
		if v, ok := row.Fields["customer"].(string); ok {
			p.Customer = v
		}
		if v, ok := row.Fields["order_number"].(string); ok {
			p.OrderNumber = v
		}
		if v, ok := row.Fields["planned_etd"].(time.Time); ok {
			p.PlannedEtd = &v
		}
		preview = append(preview, p)
	}
	return preview
}
