// Package report renders the honorarium projection as an XLSX workbook.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"gradschool/internal/models"
)

const sheetName = "Honoraria"

var headers = []string{
	"Program", "Category", "Student ID", "Student", "Defense Type", "Defense Date",
	"Panelist", "Role", "Amount", "Amount in Words", "Payment Date", "OR Number",
}

// Source provides the flattened report rows
type Source interface {
	HonorariumReport(ctx context.Context, program string) ([]models.HonorariumReportRow, error)
}

// Generator builds honorarium reports
type Generator struct {
	source Source
}

// NewGenerator creates a new report generator
func NewGenerator(source Source) *Generator {
	return &Generator{source: source}
}

// Export writes the report for program (all programs when empty) to w and
// returns the number of payment rows written
func (g *Generator) Export(ctx context.Context, program string, w io.Writer) (int, error) {
	rows, err := g.source.HonorariumReport(ctx, program)
	if err != nil {
		return 0, err
	}

	f, err := Build(rows)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return len(rows), nil
}

// Build lays the rows out on one sheet followed by a totals row
func Build(rows []models.HonorariumReportRow) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return nil, err
	}

	var total models.Centavos
	for i, r := range rows {
		row := i + 2
		values := []interface{}{
			r.Program,
			r.Category,
			r.StudentID,
			r.StudentName,
			string(r.DefenseType),
			formatDate(r.DefenseDate),
			r.Panelist,
			string(r.Role),
			r.Amount.Pesos(),
			r.Amount.Words(),
			r.PaymentDate.Format("2006-01-02"),
			r.ORNumber,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		total += r.Amount
	}

	totalRow := len(rows) + 2
	if err := f.SetCellValue(sheetName, fmt.Sprintf("H%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("I%d", totalRow), total.Pesos()); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, fmt.Sprintf("J%d", totalRow), total.Words()); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, totalRow, totalRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "I2", fmt.Sprintf("I%d", totalRow), money); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheetName, "A", "L", 18); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "J", "J", 48); err != nil {
		return nil, err
	}

	return f, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
