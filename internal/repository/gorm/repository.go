package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// tx falls back to the store's own handle so the Tx methods also work outside
// a transaction.
func (s *Store) tx(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// --- Model definitions -------------------------------------------------------

func (s *Store) GetModelDefinition(ctx context.Context, id uint64) (*models.ModelDefinition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ModelDefinition
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) modelDefinitionQuery(ctx context.Context, params repository.ListModelDefinitionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.ModelDefinition{})
	if params.ModelType != nil && strings.TrimSpace(*params.ModelType) != "" {
		query = query.Where("model_type = ?", strings.TrimSpace(*params.ModelType))
	}
	return query
}

func (s *Store) ListModelDefinitions(ctx context.Context, params repository.ListModelDefinitionsParams) ([]models.ModelDefinition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.modelDefinitionQuery(ctx, params), params.OrderBy, params.Asc, "updated_at")
	var items []models.ModelDefinition
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountModelDefinitions(ctx context.Context, params repository.ListModelDefinitionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.modelDefinitionQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CreateModelDefinition(ctx context.Context, item *models.ModelDefinition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateModelDefinition(ctx context.Context, item *models.ModelDefinition) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) ReleaseStaleModelLocks(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.ModelDefinition{}).
		Where("locked_at IS NOT NULL").
		Where("locked_at < ?", before).
		Updates(map[string]any{"locked_by": nil, "locked_at": nil})
	return res.RowsAffected, res.Error
}

// --- Batches -----------------------------------------------------------------

func (s *Store) GetBatch(ctx context.Context, id uint64) (*models.Batch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Batch
	err := s.db.WithContext(ctx).Preload("Uploads").First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBatchesByIDs(ctx context.Context, ids []uint64) ([]models.Batch, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Batch
	if err := s.db.WithContext(ctx).Preload("Uploads").Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) batchQuery(ctx context.Context, params repository.ListBatchesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Batch{})
	if params.BatchModel != nil && strings.TrimSpace(*params.BatchModel) != "" {
		query = query.Where("batch_model = ?", strings.TrimSpace(*params.BatchModel))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Year != nil && *params.Year > 0 {
		query = query.Where("year = ?", *params.Year)
	}
	if params.Quarter != nil && strings.TrimSpace(*params.Quarter) != "" {
		query = query.Where("quarter = ?", strings.TrimSpace(*params.Quarter))
	}
	return query
}

func (s *Store) ListBatches(ctx context.Context, params repository.ListBatchesParams) ([]models.Batch, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Batch
	err := s.batchQuery(ctx, params).
		Preload("Uploads").
		Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBatches(ctx context.Context, params repository.ListBatchesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.batchQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Reference data ----------------------------------------------------------

func (s *Store) ListLineOfBusinessesByIDs(ctx context.Context, ids []uint64) ([]models.LineOfBusiness, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.LineOfBusiness
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListLineOfBusinesses(ctx context.Context) ([]models.LineOfBusiness, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.LineOfBusiness
	if err := s.db.WithContext(ctx).Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListReportTypes(ctx context.Context, batchModel string, ids []uint64) ([]models.ReportType, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ReportType{}).Where("enabled = ?", true)
	if strings.TrimSpace(batchModel) != "" {
		query = query.Where("batch_model = ?", strings.TrimSpace(batchModel))
	}
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	var items []models.ReportType
	if err := query.Order("code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAllReportTypes(ctx context.Context) ([]models.ReportType, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ReportType
	if err := s.db.WithContext(ctx).Order("batch_model asc, code asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertReportType(ctx context.Context, item *models.ReportType) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_model"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "enabled", "updated_at"}),
	}).Create(item).Error
}

// --- Engine configs ----------------------------------------------------------

func (s *Store) GetCalculationConfig(ctx context.Context, id uint64) (*models.CalculationConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CalculationConfig
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCalculationConfigs(ctx context.Context) ([]models.CalculationConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.CalculationConfig
	if err := s.db.WithContext(ctx).Omit("script_bytes").Order("updated_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveCalculationConfig(ctx context.Context, item *models.CalculationConfig) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) GetConversionConfig(ctx context.Context, id uint64) (*models.ConversionConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ConversionConfig
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListConversionConfigs(ctx context.Context) ([]models.ConversionConfig, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ConversionConfig
	if err := s.db.WithContext(ctx).Omit("script_bytes").Order("updated_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SaveConversionConfig(ctx context.Context, item *models.ConversionConfig) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

// --- Run rows ----------------------------------------------------------------

func (s *Store) CreateEngineInputTx(ctx context.Context, tx *gorm.DB, item *models.EngineInput) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.tx(ctx, tx).Create(item).Error
}

func (s *Store) GetEngineInput(ctx context.Context, runID string) (*models.EngineInput, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.EngineInput
	err := s.db.WithContext(ctx).First(&item, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateEngineResultTx(ctx context.Context, tx *gorm.DB, item *models.EngineResult) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.tx(ctx, tx).Create(item).Error
}

func (s *Store) GetEngineResult(ctx context.Context, id uint64) (*models.EngineResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.EngineResult
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetLatestEngineResultForRun(ctx context.Context, runID string, reportType string) (*models.EngineResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Where("run_id = ?", runID)
	if strings.TrimSpace(reportType) != "" {
		query = query.Where("report_type = ?", strings.TrimSpace(reportType))
	}
	var item models.EngineResult
	err := query.Order("created_at desc").First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) engineResultQuery(ctx context.Context, params repository.ListEngineResultsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.EngineResult{})
	if params.RunID != nil && strings.TrimSpace(*params.RunID) != "" {
		query = query.Where("run_id = ?", strings.TrimSpace(*params.RunID))
	}
	if params.ReportType != nil && strings.TrimSpace(*params.ReportType) != "" {
		query = query.Where("report_type = ?", strings.TrimSpace(*params.ReportType))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Year != nil && *params.Year > 0 {
		query = query.Where("year = ?", *params.Year)
	}
	if params.Quarter != nil && strings.TrimSpace(*params.Quarter) != "" {
		query = query.Where("quarter = ?", strings.TrimSpace(*params.Quarter))
	}
	return query
}

func (s *Store) ListEngineResults(ctx context.Context, params repository.ListEngineResultsParams) ([]models.EngineResult, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.engineResultQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	var items []models.EngineResult
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEngineResults(ctx context.Context, params repository.ListEngineResultsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.engineResultQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Audit trail -------------------------------------------------------------

func (s *Store) CreateCalculationValues(ctx context.Context, items []models.CalculationValue) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 100).Error
}

func (s *Store) GetCalculationValue(ctx context.Context, runID string, valueID string) (*models.CalculationValue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.CalculationValue
	err := s.db.WithContext(ctx).
		Preload("Assumptions").
		Preload("InputData").
		Where("run_id = ? AND value_id = ?", runID, valueID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCalculationValues(ctx context.Context, params repository.ListCalculationValuesParams) ([]models.CalculationValue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CalculationValue{})
	if params.RunID != nil && strings.TrimSpace(*params.RunID) != "" {
		query = query.Where("run_id = ?", strings.TrimSpace(*params.RunID))
	}
	if params.ValuePrefix != nil && strings.TrimSpace(*params.ValuePrefix) != "" {
		query = query.Where("value_id LIKE ?", strings.TrimSpace(*params.ValuePrefix)+"%")
	}
	if params.LineOfBusiness != nil && strings.TrimSpace(*params.LineOfBusiness) != "" {
		query = query.Where("line_of_business = ?", strings.TrimSpace(*params.LineOfBusiness))
	}
	var items []models.CalculationValue
	err := query.Order("value_id asc").
		Limit(normalizeLimit(params.Limit, 500)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCalculationValues(ctx context.Context, runID *string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.CalculationValue{})
	if runID != nil && strings.TrimSpace(*runID) != "" {
		query = query.Where("run_id = ?", strings.TrimSpace(*runID))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Publication -------------------------------------------------------------

func (s *Store) ListActiveSubmittedReportsTx(ctx context.Context, tx *gorm.DB, reportType string, year int, quarter string) ([]models.SubmittedReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SubmittedReport
	err := s.tx(ctx, tx).
		Where("report_type = ? AND year = ? AND quarter = ? AND status = ?",
			reportType, year, quarter, models.SubmissionStatusActive).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkSubmittedReportSupersededTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.tx(ctx, tx).Model(&models.SubmittedReport{}).
		Where("id = ?", id).
		Update("status", models.SubmissionStatusSuperseded).Error
}

func (s *Store) CreateSubmittedReportTx(ctx context.Context, tx *gorm.DB, item *models.SubmittedReport) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.tx(ctx, tx).Create(item).Error
}

func (s *Store) GetSubmittedReport(ctx context.Context, id uint64) (*models.SubmittedReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SubmittedReport
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSubmittedReports(ctx context.Context, params repository.ListSubmittedReportsParams) ([]models.SubmittedReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SubmittedReport{})
	if params.ReportType != nil && strings.TrimSpace(*params.ReportType) != "" {
		query = query.Where("report_type = ?", strings.TrimSpace(*params.ReportType))
	}
	if params.Year != nil && *params.Year > 0 {
		query = query.Where("year = ?", *params.Year)
	}
	if params.Quarter != nil && strings.TrimSpace(*params.Quarter) != "" {
		query = query.Where("quarter = ?", strings.TrimSpace(*params.Quarter))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	var items []models.SubmittedReport
	err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 100)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Pipeline health ---------------------------------------------------------

func (s *Store) CountDistinctRuns(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.EngineResult{}).
		Distinct("run_id").Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
