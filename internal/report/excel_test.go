package report

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"ifrs17/internal/models"
)

func genericResult() *models.EngineResult {
	return &models.EngineResult{
		RunID:      "run-x1",
		ReportType: "premium_allocation",
		Year:       2025,
		Quarter:    "Q1",
		Result: datatypes.JSON([]byte(`{
			"results": {
				"summaryView": [{"line_of_business": "Motor", "net": 120.5}],
				"detailedView": [
					{"line_of_business": "Motor", "premiums": 200, "claims": 79.5},
					{"line_of_business": "Property", "premiums": 90, "claims": 30}
				]
			}
		}`)),
	}
}

func TestRenderWorkbookGenericViews(t *testing.T) {
	data, err := RenderWorkbook(genericResult(), 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Detail")
	if err != nil {
		t.Fatalf("detail sheet: %v", err)
	}
	// Header plus two data rows.
	if len(rows) != 3 {
		t.Fatalf("detail rows=%d want 3", len(rows))
	}
	if rows[0][0] != "claims" {
		t.Fatalf("columns not sorted: %v", rows[0])
	}

	summary, err := f.GetRows("Summary")
	if err != nil || len(summary) != 2 {
		t.Fatalf("summary rows=%d err=%v", len(summary), err)
	}
	for _, name := range f.GetSheetList() {
		if name == "Sheet1" {
			t.Fatalf("default sheet left behind: %v", f.GetSheetList())
		}
	}
}

func TestRenderWorkbookMaxRows(t *testing.T) {
	data, err := RenderWorkbook(genericResult(), 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Detail")
	if len(rows) != 2 {
		t.Fatalf("detail rows=%d want header plus 1", len(rows))
	}
}

func TestRenderWorkbookDisclosurePassthrough(t *testing.T) {
	baked := []byte("pretend-xlsx-bytes")
	result := &models.EngineResult{
		ReportType: models.ReportTypeDisclosure,
		Result: datatypes.JSON([]byte(`{
			"excel_bytes": "` + base64.StdEncoding.EncodeToString(baked) + `",
			"results": {"summaryView": []}
		}`)),
	}
	data, err := RenderWorkbook(result, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(data, baked) {
		t.Fatalf("embedded workbook not passed through")
	}
}

func TestRenderPDF(t *testing.T) {
	data, err := RenderPDF(genericResult(), 0)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", data[:8])
	}
}
