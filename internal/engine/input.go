package engine

import (
	"ifrs17/internal/models"
)

// RunContext is the canonical JSON context handed to every script invocation
// of a run. It is built once per run and never mutated: the WithCurrent*
// methods return focused copies for each invocation.
type RunContext struct {
	RunID            string           `json:"run_id"`
	ModelDefinition  ModelSnapshot    `json:"model_definition"`
	BatchData        []BatchMeta      `json:"batch_data"`
	FieldParameters  FieldParameters  `json:"field_parameters"`
	LineOfBusinesses []LOBMeta        `json:"line_of_businesses"`
	CurrentBatch     *BatchMeta       `json:"current_batch,omitempty"`
	CurrentLOB       *LOBMeta         `json:"current_lob,omitempty"`
	CurrentReport    string           `json:"current_report_type,omitempty"`
	ConversionEngine *EngineRef       `json:"conversion_engine,omitempty"`
}

type ModelSnapshot struct {
	ID        uint64         `json:"id"`
	Name      string         `json:"name"`
	ModelType string         `json:"model_type"`
	Config    map[string]any `json:"config"`
}

// BatchMeta carries batch and per-upload metadata. Raw file bytes never enter
// the context.
type BatchMeta struct {
	ID            uint64       `json:"id"`
	Name          string       `json:"name"`
	BatchType     string       `json:"batch_type"`
	BatchModel    string       `json:"batch_model"`
	InsuranceType string       `json:"insurance_type"`
	Year          int          `json:"year"`
	Quarter       string       `json:"quarter"`
	Status        string       `json:"batch_status"`
	Uploads       []UploadMeta `json:"uploads"`
}

type UploadMeta struct {
	FileName         string `json:"file_name"`
	Source           string `json:"source"`
	DataType         string `json:"data_type"`
	ValidationStatus string `json:"validation_status"`
	RowCount         int    `json:"row_count"`
	ErrorCount       int    `json:"error_count"`
}

type LOBMeta struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Currency    string `json:"currency"`
	LegalEntity string `json:"legal_entity"`
}

type FieldParameters struct {
	ModelType           string   `json:"model_type"`
	Year                int      `json:"year"`
	Quarter             string   `json:"quarter"`
	LineOfBusinessIDs   []uint64 `json:"line_of_business_ids"`
	ReportTypeIDs       []uint64 `json:"report_type_ids"`
	ReportTypeCodes     []string `json:"report_types"`
	CalculationEngineID uint64   `json:"calculation_engine_id,omitempty"`
	ConversionEngineID  uint64   `json:"conversion_engine_id,omitempty"`
	EngineVersion       string   `json:"engine_version,omitempty"`
}

type EngineRef struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	EngineType string `json:"engine_type"`
	HasScript  bool   `json:"has_script"`
}

// BuildContext assembles the shared run context from resolved configuration
// rows. Pure transformation, no side effects.
func BuildContext(runID string, model *models.ModelDefinition, batches []models.Batch, lobs []models.LineOfBusiness, params FieldParameters) RunContext {
	snap := ModelSnapshot{}
	if model != nil {
		snap.ID = model.ID
		snap.Name = model.Name
		snap.ModelType = model.ModelType
		snap.Config = decodeJSONMap(model.Config)
	}

	batchData := make([]BatchMeta, 0, len(batches))
	for _, b := range batches {
		batchData = append(batchData, batchMeta(b))
	}

	lobMeta := make([]LOBMeta, 0, len(lobs))
	for _, l := range lobs {
		lobMeta = append(lobMeta, LOBMeta{
			ID:          l.ID,
			Name:        l.Name,
			Code:        l.Code,
			Currency:    l.CurrencyCode,
			LegalEntity: l.LegalEntity,
		})
	}

	return RunContext{
		RunID:            runID,
		ModelDefinition:  snap,
		BatchData:        batchData,
		FieldParameters:  params,
		LineOfBusinesses: lobMeta,
	}
}

func batchMeta(b models.Batch) BatchMeta {
	uploads := make([]UploadMeta, 0, len(b.Uploads))
	for _, u := range b.Uploads {
		uploads = append(uploads, UploadMeta{
			FileName:         u.FileName,
			Source:           u.Source,
			DataType:         u.DataType,
			ValidationStatus: u.ValidationStatus,
			RowCount:         u.RowCount,
			ErrorCount:       u.ErrorCount,
		})
	}
	return BatchMeta{
		ID:            b.ID,
		Name:          b.Name,
		BatchType:     b.BatchType,
		BatchModel:    b.BatchModel,
		InsuranceType: b.InsuranceType,
		Year:          b.Year,
		Quarter:       b.Quarter,
		Status:        b.Status,
		Uploads:       uploads,
	}
}

// WithCurrentBatch returns a copy focused on one batch.
func (c RunContext) WithCurrentBatch(b BatchMeta) RunContext {
	c.CurrentBatch = &b
	return c
}

// WithCurrentLOB returns a copy focused on one line of business.
func (c RunContext) WithCurrentLOB(l LOBMeta) RunContext {
	c.CurrentLOB = &l
	return c
}

// WithCurrentReportType returns a copy focused on one report type.
func (c RunContext) WithCurrentReportType(code string) RunContext {
	c.CurrentReport = code
	return c
}

// WithConversionEngine returns a copy naming the conversion engine in play.
func (c RunContext) WithConversionEngine(ref EngineRef) RunContext {
	c.ConversionEngine = &ref
	return c
}
