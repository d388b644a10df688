package excelimport_test

import (
	"testing"

	"bitbucket.org/puretradeops/logistics_backend/excelimport"
	"bitbucket.org/puretradeops/logistics_backend/models"
)

func TestClassify(t *testing.T) {
	rows := excelimport.ParseRows([]map[string]string{
		{"Order number": "1001", "batch": "1", "Client": "Acme"},
		{"Order number": "2002", "Client": "Beta"},
		{"Client": "NoKey"},
	})
	existing := map[string]bool{"1001-1": true}

	preview := excelimport.Classify(rows, existing)
	if len(preview) != 3 {
		t.Fatalf("len(preview) = %d; want 3", len(preview))
	}
	if preview[0].Status != models.RowStatusUpdate {
		t.Errorf("row 2 status = %s; want update", preview[0].Status)
	}
	if preview[1].Status != models.RowStatusNew {
		t.Errorf("row 3 status = %s; want new", preview[1].Status)
	}
	if preview[2].Status != models.RowStatusError {
		t.Errorf("row 4 status = %s; want error", preview[2].Status)
	}
	if preview[2].Error == "" {
		t.Error("error row carries no message")
	}
	if preview[0].Customer != "Acme" {
		t.Errorf("row 2 customer = %q; want Acme", preview[0].Customer)
	}
}

func TestClassifyMissingKeyNeverNewOrUpdate(t *testing.T) {
	rows := excelimport.ParseRows([]map[string]string{
		{"Client": "Acme"},
	})
	for _, existing := range []map[string]bool{{}, {"": true}} {
		preview := excelimport.Classify(rows, existing)
		if preview[0].Status != models.RowStatusError {
			t.Fatalf("status = %s; want error", preview[0].Status)
		}
	}
}
