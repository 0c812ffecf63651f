package engine

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but only the subset used by orchestrator
// tests does anything.
type stubRepo struct {
	model       *models.ModelDefinition
	batches     map[uint64]models.Batch
	lobs        map[uint64]models.LineOfBusiness
	reportTypes []models.ReportType
	calcConfig  *models.CalculationConfig
	convConfig  *models.ConversionConfig

	inputs  []models.EngineInput
	results []models.EngineResult
	nextID  uint64
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) GetModelDefinition(ctx context.Context, id uint64) (*models.ModelDefinition, error) {
	if s.model != nil && s.model.ID == id {
		clone := *s.model
		return &clone, nil
	}
	return nil, nil
}
func (s *stubRepo) ListModelDefinitions(ctx context.Context, params repository.ListModelDefinitionsParams) ([]models.ModelDefinition, error) {
	return nil, nil
}
func (s *stubRepo) CountModelDefinitions(ctx context.Context, params repository.ListModelDefinitionsParams) (int64, error) {
	return 0, nil
}
func (s *stubRepo) CreateModelDefinition(ctx context.Context, item *models.ModelDefinition) error {
	return nil
}
func (s *stubRepo) UpdateModelDefinition(ctx context.Context, item *models.ModelDefinition) error {
	return nil
}
func (s *stubRepo) ReleaseStaleModelLocks(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetBatch(ctx context.Context, id uint64) (*models.Batch, error) { return nil, nil }
func (s *stubRepo) ListBatchesByIDs(ctx context.Context, ids []uint64) ([]models.Batch, error) {
	out := make([]models.Batch, 0, len(ids))
	for _, id := range ids {
		if b, ok := s.batches[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}
func (s *stubRepo) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.Batch, error) {
	return nil, nil
}
func (s *stubRepo) CountBatches(ctx context.Context, params repository.ListBatchesParams) (int64, error) {
	return 0, nil
}

func (s *stubRepo) ListLineOfBusinessesByIDs(ctx context.Context, ids []uint64) ([]models.LineOfBusiness, error) {
	out := make([]models.LineOfBusiness, 0, len(ids))
	for _, id := range ids {
		if l, ok := s.lobs[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}
func (s *stubRepo) ListLineOfBusinesses(ctx context.Context) ([]models.LineOfBusiness, error) {
	return nil, nil
}
func (s *stubRepo) ListReportTypes(ctx context.Context, batchModel string, ids []uint64) ([]models.ReportType, error) {
	out := make([]models.ReportType, 0, len(s.reportTypes))
	for _, rt := range s.reportTypes {
		if rt.BatchModel == batchModel && rt.Enabled {
			out = append(out, rt)
		}
	}
	return out, nil
}
func (s *stubRepo) ListAllReportTypes(ctx context.Context) ([]models.ReportType, error) {
	return s.reportTypes, nil
}
func (s *stubRepo) UpsertReportType(ctx context.Context, item *models.ReportType) error { return nil }

func (s *stubRepo) GetCalculationConfig(ctx context.Context, id uint64) (*models.CalculationConfig, error) {
	if s.calcConfig != nil && s.calcConfig.ID == id {
		return s.calcConfig, nil
	}
	return nil, nil
}
func (s *stubRepo) ListCalculationConfigs(ctx context.Context) ([]models.CalculationConfig, error) {
	return nil, nil
}
func (s *stubRepo) SaveCalculationConfig(ctx context.Context, item *models.CalculationConfig) error {
	return nil
}
func (s *stubRepo) GetConversionConfig(ctx context.Context, id uint64) (*models.ConversionConfig, error) {
	if s.convConfig != nil && s.convConfig.ID == id {
		return s.convConfig, nil
	}
	return nil, nil
}
func (s *stubRepo) ListConversionConfigs(ctx context.Context) ([]models.ConversionConfig, error) {
	return nil, nil
}
func (s *stubRepo) SaveConversionConfig(ctx context.Context, item *models.ConversionConfig) error {
	return nil
}

func (s *stubRepo) CreateEngineInputTx(ctx context.Context, tx *gorm.DB, item *models.EngineInput) error {
	s.nextID++
	item.ID = s.nextID
	s.inputs = append(s.inputs, *item)
	return nil
}
func (s *stubRepo) GetEngineInput(ctx context.Context, runID string) (*models.EngineInput, error) {
	for i := range s.inputs {
		if s.inputs[i].RunID == runID {
			return &s.inputs[i], nil
		}
	}
	return nil, nil
}
func (s *stubRepo) CreateEngineResultTx(ctx context.Context, tx *gorm.DB, item *models.EngineResult) error {
	s.nextID++
	item.ID = s.nextID
	s.results = append(s.results, *item)
	return nil
}
func (s *stubRepo) GetEngineResult(ctx context.Context, id uint64) (*models.EngineResult, error) {
	return nil, nil
}
func (s *stubRepo) GetLatestEngineResultForRun(ctx context.Context, runID string, reportType string) (*models.EngineResult, error) {
	return nil, nil
}
func (s *stubRepo) ListEngineResults(ctx context.Context, params repository.ListEngineResultsParams) ([]models.EngineResult, error) {
	return s.results, nil
}
func (s *stubRepo) CountEngineResults(ctx context.Context, params repository.ListEngineResultsParams) (int64, error) {
	return int64(len(s.results)), nil
}

func (s *stubRepo) CreateCalculationValues(ctx context.Context, items []models.CalculationValue) error {
	return nil
}
func (s *stubRepo) GetCalculationValue(ctx context.Context, runID string, valueID string) (*models.CalculationValue, error) {
	return nil, nil
}
func (s *stubRepo) ListCalculationValues(ctx context.Context, params repository.ListCalculationValuesParams) ([]models.CalculationValue, error) {
	return nil, nil
}
func (s *stubRepo) CountCalculationValues(ctx context.Context, runID *string) (int64, error) {
	return 0, nil
}

func (s *stubRepo) ListActiveSubmittedReportsTx(ctx context.Context, tx *gorm.DB, reportType string, year int, quarter string) ([]models.SubmittedReport, error) {
	return nil, nil
}
func (s *stubRepo) MarkSubmittedReportSupersededTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	return nil
}
func (s *stubRepo) CreateSubmittedReportTx(ctx context.Context, tx *gorm.DB, item *models.SubmittedReport) error {
	return nil
}
func (s *stubRepo) GetSubmittedReport(ctx context.Context, id uint64) (*models.SubmittedReport, error) {
	return nil, nil
}
func (s *stubRepo) ListSubmittedReports(ctx context.Context, params repository.ListSubmittedReportsParams) ([]models.SubmittedReport, error) {
	return nil, nil
}

func (s *stubRepo) CountDistinctRuns(ctx context.Context) (int64, error) { return 0, nil }
