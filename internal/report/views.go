package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/datatypes"
)

// resultViews is the generic render shape: uniform row objects under
// results.summaryView / results.detailedView (camel or snake case accepted).
type resultViews struct {
	Summary  []map[string]any
	Detailed []map[string]any
}

type rawResults struct {
	Results struct {
		SummaryView       []map[string]any `json:"summaryView"`
		SummaryViewSnake  []map[string]any `json:"summary_view"`
		DetailedView      []map[string]any `json:"detailedView"`
		DetailedViewSnake []map[string]any `json:"detailed_view"`
	} `json:"results"`
	ExcelBytes string `json:"excel_bytes"`
}

func parseViews(result datatypes.JSON) (resultViews, error) {
	var raw rawResults
	if err := json.Unmarshal(result, &raw); err != nil {
		return resultViews{}, fmt.Errorf("report: parse result payload: %w", err)
	}
	views := resultViews{
		Summary:  raw.Results.SummaryView,
		Detailed: raw.Results.DetailedView,
	}
	if len(views.Summary) == 0 {
		views.Summary = raw.Results.SummaryViewSnake
	}
	if len(views.Detailed) == 0 {
		views.Detailed = raw.Results.DetailedViewSnake
	}
	return views, nil
}

// embeddedWorkbook returns the script-baked xlsx bytes when the payload
// carries them (the disclosure engine pre-renders its own workbook).
func embeddedWorkbook(result datatypes.JSON) ([]byte, bool) {
	var raw rawResults
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, false
	}
	if raw.ExcelBytes == "" {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(raw.ExcelBytes)
	if err != nil {
		return nil, false
	}
	return decoded, true
}

// columnOrder gives a stable column ordering for uniform row objects.
func columnOrder(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.2f", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
