// Package audit decomposes disclosure engine output into individually
// tracked value rows with assumption and input-data provenance.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// Entry is one calculation in the disclosure payload's calculations map.
type Entry struct {
	ValueID        string  `json:"value_id"`
	Amount         float64 `json:"amount"`
	Unit           string  `json:"unit"`
	LineOfBusiness string  `json:"line_of_business"`
	Cohort         string  `json:"cohort"`
	Group          string  `json:"group"`

	Formula      string   `json:"formula"`
	Dependencies []string `json:"dependencies"`
	Method       string   `json:"method"`
	Notes        string   `json:"notes"`

	IsMissingData bool `json:"is_missing_data"`
	IsOverride    bool `json:"is_override"`
	IsFallback    bool `json:"is_fallback"`
	HasRounding   bool `json:"has_rounding"`

	Assumptions map[string]AssumptionDescriptor `json:"assumptions"`
	InputData   []InputDataDescriptor           `json:"input_data"`
}

type AssumptionDescriptor struct {
	AssumptionID  string         `json:"assumption_id"`
	Version       string         `json:"version"`
	EffectiveDate string         `json:"effective_date"`
	Metadata      map[string]any `json:"metadata"`
}

type InputDataDescriptor struct {
	DatasetName string `json:"dataset_name"`
	SnapshotID  string `json:"snapshot_id"`
	ContentHash string `json:"content_hash"`
	RecordCount int    `json:"record_count"`
}

type Metadata struct {
	Period      string `json:"period"`
	LegalEntity string `json:"legal_entity"`
	Currency    string `json:"currency"`
}

type disclosurePayload struct {
	RunID        string           `json:"run_id"`
	Calculations map[string]Entry `json:"calculations"`
	Metadata     Metadata         `json:"metadata"`
}

// Recorder persists the audit trail for successful disclosure results. Not
// idempotent: the (run_id, value_id) unique index makes a second population
// pass for the same run fail, and the recorder is invoked exactly once per
// result.
type Recorder struct {
	Repo          repository.Repository
	Logger        *zap.Logger
	EngineVersion string
}

// Populate creates one CalculationValue per entry carrying a value_id, plus
// AssumptionReference and InputDataReference children. Returns the number of
// value rows created; the count is informational only.
func (r *Recorder) Populate(ctx context.Context, result *models.EngineResult, payload json.RawMessage) (int, error) {
	if result == nil {
		return 0, errors.New("audit: nil engine result")
	}
	var parsed disclosurePayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return 0, fmt.Errorf("audit: parse disclosure payload: %w", err)
	}
	if len(parsed.Calculations) == 0 {
		return 0, nil
	}

	period := parsed.Metadata.Period
	if period == "" {
		period = fmt.Sprintf("%d%s", result.Year, result.Quarter)
	}
	currency := parsed.Metadata.Currency
	if currency == "" {
		currency = result.Currency
	}

	rows := make([]models.CalculationValue, 0, len(parsed.Calculations))
	for _, entry := range parsed.Calculations {
		if strings.TrimSpace(entry.ValueID) == "" {
			continue
		}
		row := models.CalculationValue{
			EngineResultID: result.ID,
			RunID:          result.RunID,
			ValueID:        entry.ValueID,
			ReportType:     result.ReportType,
			Period:         period,
			LegalEntity:    parsed.Metadata.LegalEntity,
			Currency:       currency,
			Label:          HumanizeValueID(entry.ValueID),
			Value:          decimal.NewFromFloat(entry.Amount),
			Unit:           defaultString(entry.Unit, "currency"),
			Formula:        entry.Formula,
			Method:         defaultString(entry.Method, "direct"),
			Notes:          entry.Notes,
			IsMissingData:  entry.IsMissingData,
			IsOverride:     entry.IsOverride,
			IsFallback:     entry.IsFallback,
			HasRounding:    entry.HasRounding,
			EngineVersion:  r.EngineVersion,
		}
		if entry.LineOfBusiness != "" {
			lob := entry.LineOfBusiness
			row.LineOfBusiness = &lob
		}
		if entry.Cohort != "" {
			c := entry.Cohort
			row.Cohort = &c
		}
		if entry.Group != "" {
			g := entry.Group
			row.ContractGroup = &g
		}
		if len(entry.Dependencies) > 0 {
			raw, _ := json.Marshal(entry.Dependencies)
			row.Dependencies = datatypes.JSON(raw)
		}
		for assumptionType, desc := range entry.Assumptions {
			ref := models.AssumptionReference{
				AssumptionType: assumptionType,
				AssumptionID:   desc.AssumptionID,
				Version:        desc.Version,
			}
			if ts, err := time.Parse("2006-01-02", desc.EffectiveDate); err == nil {
				ref.EffectiveDate = &ts
			}
			if len(desc.Metadata) > 0 {
				raw, _ := json.Marshal(desc.Metadata)
				ref.Metadata = datatypes.JSON(raw)
			}
			row.Assumptions = append(row.Assumptions, ref)
		}
		for _, src := range entry.InputData {
			row.InputData = append(row.InputData, models.InputDataReference{
				DatasetName: src.DatasetName,
				SnapshotID:  src.SnapshotID,
				ContentHash: src.ContentHash,
				RecordCount: src.RecordCount,
			})
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return 0, nil
	}
	if err := r.Repo.CreateCalculationValues(ctx, rows); err != nil {
		return 0, err
	}
	if r.Logger != nil {
		r.Logger.Info("audit trail populated",
			zap.String("run_id", result.RunID),
			zap.Int("values", len(rows)))
	}
	return len(rows), nil
}

// HumanizeValueID turns a dotted hierarchical key into a readable label:
// "DR.MA.Opening.Liabilities.Total" -> "DR MA Opening Liabilities Total",
// splitting camel-cased segments along the way.
func HumanizeValueID(valueID string) string {
	segments := strings.Split(valueID, ".")
	words := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		words = append(words, splitCamel(seg)...)
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	var words []string
	var current []rune
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			words = append(words, string(current))
			current = current[:0]
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return words
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
