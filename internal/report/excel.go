// Package report renders EngineResult payloads to Excel and PDF. Layout is
// presentation only; the stored result_json stays the source of truth.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"ifrs17/internal/models"
)

// RenderWorkbook renders one EngineResult to xlsx bytes. Disclosure results
// carry their own workbook baked by the engine script; everything else is
// rendered generically from the summary/detailed views.
func RenderWorkbook(result *models.EngineResult, maxRows int) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("report: nil engine result")
	}
	if result.ReportType == models.ReportTypeDisclosure {
		if raw, ok := embeddedWorkbook(result.Result); ok {
			return raw, nil
		}
	}

	views, err := parseViews(result.Result)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeSheet(f, "Summary", views.Summary, maxRows); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "Detail", views.Detailed, maxRows); err != nil {
		return nil, err
	}
	// Replace the default sheet with Summary.
	if idx, err := f.GetSheetIndex("Summary"); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("report: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, rows []map[string]any, maxRows int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	cols := columnOrder(rows)
	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, col); err != nil {
			return err
		}
	}
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for r, row := range rows {
		for c, col := range cols {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, row[col]); err != nil {
				return err
			}
		}
	}
	return nil
}
