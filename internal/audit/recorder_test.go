package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// captureRepo records the rows the recorder would persist. Only
// CreateCalculationValues is implemented; everything else panics via the
// embedded nil interface.
type captureRepo struct {
	repository.Repository
	rows []models.CalculationValue
	err  error
}

func (r *captureRepo) CreateCalculationValues(ctx context.Context, items []models.CalculationValue) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, items...)
	return nil
}

func disclosureResult() *models.EngineResult {
	return &models.EngineResult{
		ID:         44,
		RunID:      "run-a1",
		ReportType: models.ReportTypeDisclosure,
		Year:       2025,
		Quarter:    "Q1",
		Currency:   "USD",
	}
}

const samplePayload = `{
	"calculations": {
		"DR.MA.Opening.Liabilities.Total": {
			"value_id": "DR.MA.Opening.Liabilities.Total",
			"amount": 1250000.5,
			"line_of_business": "Motor",
			"cohort": "2025-Q1",
			"formula": "sum(measurement_rows.amount)",
			"dependencies": ["DR.MA.Opening.Liabilities.LRC"],
			"has_rounding": true,
			"assumptions": {
				"discount_curve": {
					"assumption_id": "discount_curve/EUR",
					"version": "2024.1",
					"effective_date": "2025-01-01",
					"metadata": {"source": "treasury"}
				}
			},
			"input_data": [
				{"dataset_name": "claims", "snapshot_id": "batch-1", "content_hash": "abc", "record_count": 120}
			]
		},
		"DR.MA.Closing.Liabilities.Total": {
			"value_id": "DR.MA.Closing.Liabilities.Total",
			"amount": -80000,
			"is_fallback": true
		},
		"unaddressed": {"amount": 1}
	},
	"metadata": {"period": "2025-Q1", "legal_entity": "Acme Re", "currency": "EUR"}
}`

func TestPopulate(t *testing.T) {
	repo := &captureRepo{}
	rec := &Recorder{Repo: repo, Logger: zap.NewNop(), EngineVersion: "1.0.0"}

	count, err := rec.Populate(context.Background(), disclosureResult(), json.RawMessage(samplePayload))
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	// The entry without a value_id is skipped.
	if count != 2 || len(repo.rows) != 2 {
		t.Fatalf("count=%d rows=%d want 2", count, len(repo.rows))
	}

	byID := map[string]models.CalculationValue{}
	for _, row := range repo.rows {
		byID[row.ValueID] = row
	}
	opening, ok := byID["DR.MA.Opening.Liabilities.Total"]
	if !ok {
		t.Fatalf("opening value missing: %#v", byID)
	}
	if opening.RunID != "run-a1" || opening.EngineResultID != 44 {
		t.Fatalf("row linkage: %+v", opening)
	}
	if opening.Label != "DR MA Opening Liabilities Total" {
		t.Fatalf("label=%q", opening.Label)
	}
	if opening.Value.String() != "1250000.5" {
		t.Fatalf("value=%s", opening.Value)
	}
	if opening.Period != "2025-Q1" || opening.Currency != "EUR" || opening.LegalEntity != "Acme Re" {
		t.Fatalf("metadata not applied: %+v", opening)
	}
	if opening.Unit != "currency" || opening.Method != "direct" {
		t.Fatalf("defaults not applied: unit=%q method=%q", opening.Unit, opening.Method)
	}
	if opening.LineOfBusiness == nil || *opening.LineOfBusiness != "Motor" {
		t.Fatalf("lob=%v", opening.LineOfBusiness)
	}
	if !opening.HasRounding || opening.IsFallback {
		t.Fatalf("flags: %+v", opening)
	}
	if len(opening.Assumptions) != 1 {
		t.Fatalf("assumptions: %#v", opening.Assumptions)
	}
	assumption := opening.Assumptions[0]
	if assumption.AssumptionType != "discount_curve" || assumption.Version != "2024.1" {
		t.Fatalf("assumption: %+v", assumption)
	}
	if assumption.EffectiveDate == nil {
		t.Fatalf("effective date not parsed")
	}
	if len(opening.InputData) != 1 || opening.InputData[0].RecordCount != 120 {
		t.Fatalf("input data: %#v", opening.InputData)
	}

	closing := byID["DR.MA.Closing.Liabilities.Total"]
	if !closing.IsFallback {
		t.Fatalf("fallback flag lost: %+v", closing)
	}
	if closing.Value.String() != "-80000" {
		t.Fatalf("value=%s", closing.Value)
	}
}

func TestPopulateEmptyCalculations(t *testing.T) {
	repo := &captureRepo{}
	rec := &Recorder{Repo: repo, Logger: zap.NewNop()}

	count, err := rec.Populate(context.Background(), disclosureResult(), json.RawMessage(`{"calculations":{}}`))
	if err != nil || count != 0 {
		t.Fatalf("count=%d err=%v", count, err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("no rows expected")
	}
}

func TestPopulateMalformedPayload(t *testing.T) {
	rec := &Recorder{Repo: &captureRepo{}, Logger: zap.NewNop()}
	if _, err := rec.Populate(context.Background(), disclosureResult(), json.RawMessage(`not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestPopulatePersistError(t *testing.T) {
	repo := &captureRepo{err: errors.New("duplicate key")}
	rec := &Recorder{Repo: repo, Logger: zap.NewNop()}
	if _, err := rec.Populate(context.Background(), disclosureResult(), json.RawMessage(samplePayload)); err == nil {
		t.Fatalf("expected persist error to propagate")
	}
}

func TestHumanizeValueID(t *testing.T) {
	cases := map[string]string{
		"DR.MA.Opening.Liabilities.Total": "DR MA Opening Liabilities Total",
		"lrcRollForward.netTotal":         "lrc Roll Forward net Total",
		"Simple":                          "Simple",
		"":                                "",
	}
	for in, want := range cases {
		if got := HumanizeValueID(in); got != want {
			t.Fatalf("HumanizeValueID(%q)=%q want %q", in, got, want)
		}
	}
}
