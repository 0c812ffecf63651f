package engine

import (
	"testing"

	"gorm.io/datatypes"

	"ifrs17/internal/models"
)

func testModel() *models.ModelDefinition {
	return &models.ModelDefinition{
		ID:        7,
		Name:      "PAA default",
		ModelType: models.ModelTypePAA,
		Config:    datatypes.JSON([]byte(`{"coverage_units":"passage_of_time"}`)),
	}
}

func testBatches() []models.Batch {
	return []models.Batch{
		{
			ID: 1, Name: "Q1 actuals", BatchModel: models.ModelTypePAA,
			Year: 2025, Quarter: "Q1", Status: models.BatchStatusCompleted,
			Uploads: []models.Upload{{FileName: "claims.csv", DataType: "claims", RowCount: 120}},
		},
		{
			ID: 2, Name: "Q1 reserves", BatchModel: models.ModelTypePAA,
			Year: 2025, Quarter: "Q1", Status: models.BatchStatusCompleted,
		},
	}
}

func testLOBs() []models.LineOfBusiness {
	return []models.LineOfBusiness{
		{ID: 10, Name: "Motor", Code: "MOT", CurrencyCode: "EUR", LegalEntity: "Acme Re"},
		{ID: 11, Name: "Property", Code: "PROP", CurrencyCode: "EUR", LegalEntity: "Acme Re"},
	}
}

func TestBuildContext(t *testing.T) {
	rc := BuildContext("run-1", testModel(), testBatches(), testLOBs(), FieldParameters{
		ModelType: models.ModelTypePAA,
		Year:      2025,
		Quarter:   "Q1",
	})

	if rc.RunID != "run-1" {
		t.Fatalf("run_id=%q", rc.RunID)
	}
	if rc.ModelDefinition.Name != "PAA default" {
		t.Fatalf("model snapshot name=%q", rc.ModelDefinition.Name)
	}
	if rc.ModelDefinition.Config["coverage_units"] != "passage_of_time" {
		t.Fatalf("model config not decoded: %#v", rc.ModelDefinition.Config)
	}
	if len(rc.BatchData) != 2 {
		t.Fatalf("batch count=%d", len(rc.BatchData))
	}
	if len(rc.BatchData[0].Uploads) != 1 || rc.BatchData[0].Uploads[0].RowCount != 120 {
		t.Fatalf("upload meta lost: %#v", rc.BatchData[0].Uploads)
	}
	if len(rc.LineOfBusinesses) != 2 || rc.LineOfBusinesses[0].Currency != "EUR" {
		t.Fatalf("lob meta: %#v", rc.LineOfBusinesses)
	}
	if rc.CurrentBatch != nil || rc.CurrentLOB != nil || rc.CurrentReport != "" {
		t.Fatalf("fresh context must not be focused")
	}
}

func TestWithCurrentBatchDoesNotMutate(t *testing.T) {
	rc := BuildContext("run-2", testModel(), testBatches(), testLOBs(), FieldParameters{})

	focused := rc.WithCurrentBatch(rc.BatchData[1]).WithCurrentReportType(models.ReportTypeDisclosure)

	if rc.CurrentBatch != nil || rc.CurrentReport != "" {
		t.Fatalf("base context mutated: batch=%v report=%q", rc.CurrentBatch, rc.CurrentReport)
	}
	if focused.CurrentBatch == nil || focused.CurrentBatch.ID != 2 {
		t.Fatalf("focused batch=%v", focused.CurrentBatch)
	}
	if focused.CurrentReport != models.ReportTypeDisclosure {
		t.Fatalf("focused report=%q", focused.CurrentReport)
	}

	second := rc.WithCurrentBatch(rc.BatchData[0])
	if second.CurrentBatch.ID != 1 || focused.CurrentBatch.ID != 2 {
		t.Fatalf("focused copies share state")
	}
}
