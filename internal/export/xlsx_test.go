package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"facturelec/internal/core"
)

func TestBuildXLSX(t *testing.T) {
	records := []core.InvoiceRecord{
		{ID: "a", Provider: "ONEE", IssueDate: "2024-01-15", TotalAmount: 1200.5, TotalKwh: 450},
		{ID: "b", Provider: "Lydec", IssueDate: "2024-02-10", TotalAmount: 300, TotalKwh: 120},
	}

	data, err := BuildXLSX(records)
	if err != nil {
		t.Fatalf("BuildXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][1] != "Provider" {
		t.Errorf("header row = %v", rows[0])
	}
	if rows[1][1] != "ONEE" {
		t.Errorf("first record provider = %s, want ONEE", rows[1][1])
	}
	if rows[2][1] != "Lydec" {
		t.Errorf("second record provider = %s, want Lydec", rows[2][1])
	}
}

func TestBuildXLSX_Empty(t *testing.T) {
	data, err := BuildXLSX(nil)
	if err != nil {
		t.Fatalf("BuildXLSX(nil) error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want header only", len(rows))
	}
}
