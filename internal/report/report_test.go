package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"gradschool/internal/models"
)

type stubSource struct {
	rows    []models.HonorariumReportRow
	err     error
	program string
}

func (s *stubSource) HonorariumReport(_ context.Context, program string) ([]models.HonorariumReportRow, error) {
	s.program = program
	return s.rows, s.err
}

func sampleRows() []models.HonorariumReportRow {
	defense := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	return []models.HonorariumReportRow{
		{
			Program: "Master in IT", Category: "Masters", StudentID: "2021-00123", StudentName: "Juan Dela Cruz",
			DefenseType: models.DefenseProposal, DefenseDate: &defense, Panelist: "A", Role: models.RolePanelChair,
			Amount: models.FromPesos(2500), PaymentDate: paid, ORNumber: "OR-1",
		},
		{
			Program: "Master in IT", Category: "Masters", StudentID: "2021-00123", StudentName: "Juan Dela Cruz",
			DefenseType: models.DefenseProposal, Panelist: "B", Role: models.RolePanelMember1,
			Amount: models.FromPesos(2000.50), PaymentDate: paid, ORNumber: "OR-1",
		},
	}
}

func TestExportWritesRowsAndTotal(t *testing.T) {
	source := &stubSource{rows: sampleRows()}
	var buf bytes.Buffer

	n, err := NewGenerator(source).Export(context.Background(), "Master in IT", &buf)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}
	if source.program != "Master in IT" {
		t.Errorf("Expected program filter to be passed through, got %q", source.program)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1": "Program",
		"J1": "Amount in Words",
		"D2": "Juan Dela Cruz",
		"F2": "2026-05-20",
		"F3": "",
		"G3": "B",
		"H2": string(models.RolePanelChair),
		"J3": models.FromPesos(2000.50).Words(),
		"K2": "2026-06-01",
		"H4": "Total",
		"J4": models.FromPesos(4500.50).Words(),
		"L3": "OR-1",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(sheetName, cell)
		if err != nil {
			t.Fatalf("GetCellValue %s failed: %v", cell, err)
		}
		if got != want {
			t.Errorf("Cell %s: expected %q, got %q", cell, want, got)
		}
	}

	total, err := f.GetCellValue(sheetName, "I4", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetCellValue I4 failed: %v", err)
	}
	if total != "4500.5" {
		t.Errorf("Expected raw total 4500.5, got %q", total)
	}
}

func TestExportEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	n, err := NewGenerator(&stubSource{}).Export(context.Background(), "", &buf)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 rows, got %d", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue(sheetName, "H2"); got != "Total" {
		t.Errorf("Expected totals row right after the header, got %q", got)
	}
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != sheetName {
		t.Errorf("Expected only the %s sheet, got %v", sheetName, sheets)
	}
}

func TestExportSourceError(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewGenerator(&stubSource{err: errors.New("boom")}).Export(context.Background(), "", &buf)
	if err == nil {
		t.Fatal("Expected source error")
	}
	if buf.Len() != 0 {
		t.Error("Expected nothing written on error")
	}
}
