package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"ifrs17/internal/models"
)

// RenderPDF renders one EngineResult to PDF bytes from its summary and
// detailed views. Disclosure workbooks are Excel-only; their PDF export uses
// the same generic tables.
func RenderPDF(result *models.EngineResult, maxRows int) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("report: nil engine result")
	}
	views, err := parseViews(result.Result)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %d %s", result.ReportType, result.Year, result.Quarter), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s %d %s (run %s)", result.ReportType, result.Year, result.Quarter, result.RunID),
		"", 1, "L", false, 0, "")

	writeTable(pdf, "Summary", views.Summary, maxRows)
	writeTable(pdf, "Detail", views.Detailed, maxRows)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(pdf *fpdf.Fpdf, title string, rows []map[string]any, maxRows int) {
	if len(rows) == 0 {
		return
	}
	cols := columnOrder(rows)
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(cols))

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 8)
	for _, col := range cols {
		pdf.CellFormat(colW, 6, col, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		for _, col := range cols {
			pdf.CellFormat(colW, 6, cellString(row[col]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
