package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ifrs17/internal/models"
)

type ListModelDefinitionsParams struct {
	Limit     int
	Offset    int
	ModelType *string
	OrderBy   string
	Asc       *bool
}

type ListBatchesParams struct {
	Limit      int
	Offset     int
	BatchModel *string
	Status     *string
	Year       *int
	Quarter    *string
}

type ListEngineResultsParams struct {
	Limit      int
	Offset     int
	RunID      *string
	ReportType *string
	Status     *string
	Year       *int
	Quarter    *string
	OrderBy    string
	Asc        *bool
}

type ListCalculationValuesParams struct {
	Limit          int
	Offset         int
	RunID          *string
	ValuePrefix    *string
	LineOfBusiness *string
}

type ListSubmittedReportsParams struct {
	Limit      int
	Offset     int
	ReportType *string
	Year       *int
	Quarter    *string
	Status     *string
}

// Repository is the persistence surface shared by the generation engine, the
// audit recorder, the comparator and the REST handlers.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Model definitions.
	GetModelDefinition(ctx context.Context, id uint64) (*models.ModelDefinition, error)
	ListModelDefinitions(ctx context.Context, params ListModelDefinitionsParams) ([]models.ModelDefinition, error)
	CountModelDefinitions(ctx context.Context, params ListModelDefinitionsParams) (int64, error)
	CreateModelDefinition(ctx context.Context, item *models.ModelDefinition) error
	UpdateModelDefinition(ctx context.Context, item *models.ModelDefinition) error
	ReleaseStaleModelLocks(ctx context.Context, before time.Time) (int64, error)

	// Batches and uploads.
	GetBatch(ctx context.Context, id uint64) (*models.Batch, error)
	ListBatchesByIDs(ctx context.Context, ids []uint64) ([]models.Batch, error)
	ListBatches(ctx context.Context, params ListBatchesParams) ([]models.Batch, error)
	CountBatches(ctx context.Context, params ListBatchesParams) (int64, error)

	// Reference data.
	ListLineOfBusinessesByIDs(ctx context.Context, ids []uint64) ([]models.LineOfBusiness, error)
	ListLineOfBusinesses(ctx context.Context) ([]models.LineOfBusiness, error)
	ListReportTypes(ctx context.Context, batchModel string, ids []uint64) ([]models.ReportType, error)
	ListAllReportTypes(ctx context.Context) ([]models.ReportType, error)
	UpsertReportType(ctx context.Context, item *models.ReportType) error

	// Engine configs.
	GetCalculationConfig(ctx context.Context, id uint64) (*models.CalculationConfig, error)
	ListCalculationConfigs(ctx context.Context) ([]models.CalculationConfig, error)
	SaveCalculationConfig(ctx context.Context, item *models.CalculationConfig) error
	GetConversionConfig(ctx context.Context, id uint64) (*models.ConversionConfig, error)
	ListConversionConfigs(ctx context.Context) ([]models.ConversionConfig, error)
	SaveConversionConfig(ctx context.Context, item *models.ConversionConfig) error

	// Run rows. The Tx variants participate in the per-generation transaction.
	CreateEngineInputTx(ctx context.Context, tx *gorm.DB, item *models.EngineInput) error
	GetEngineInput(ctx context.Context, runID string) (*models.EngineInput, error)
	CreateEngineResultTx(ctx context.Context, tx *gorm.DB, item *models.EngineResult) error
	GetEngineResult(ctx context.Context, id uint64) (*models.EngineResult, error)
	GetLatestEngineResultForRun(ctx context.Context, runID string, reportType string) (*models.EngineResult, error)
	ListEngineResults(ctx context.Context, params ListEngineResultsParams) ([]models.EngineResult, error)
	CountEngineResults(ctx context.Context, params ListEngineResultsParams) (int64, error)

	// Audit trail.
	CreateCalculationValues(ctx context.Context, items []models.CalculationValue) error
	GetCalculationValue(ctx context.Context, runID string, valueID string) (*models.CalculationValue, error)
	ListCalculationValues(ctx context.Context, params ListCalculationValuesParams) ([]models.CalculationValue, error)
	CountCalculationValues(ctx context.Context, runID *string) (int64, error)

	// Publication.
	ListActiveSubmittedReportsTx(ctx context.Context, tx *gorm.DB, reportType string, year int, quarter string) ([]models.SubmittedReport, error)
	MarkSubmittedReportSupersededTx(ctx context.Context, tx *gorm.DB, id uint64) error
	CreateSubmittedReportTx(ctx context.Context, tx *gorm.DB, item *models.SubmittedReport) error
	GetSubmittedReport(ctx context.Context, id uint64) (*models.SubmittedReport, error)
	ListSubmittedReports(ctx context.Context, params ListSubmittedReportsParams) ([]models.SubmittedReport, error)

	// Pipeline health.
	CountDistinctRuns(ctx context.Context) (int64, error)
}
