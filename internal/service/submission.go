package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

var (
	ErrResultNotFound = errors.New("engine result not found")
	ErrDanglingResult = errors.New("submitted report references a deleted engine result")
)

// SubmissionService publishes engine results. At most one SubmittedReport is
// active per (report_type, year, quarter): submitting demotes every prior
// active row for the key to superseded inside the same transaction.
type SubmissionService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *SubmissionService) Submit(ctx context.Context, engineResultID uint64, submittedBy string) (*models.SubmittedReport, error) {
	result, err := s.Repo.GetEngineResult(ctx, engineResultID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %d", ErrResultNotFound, engineResultID)
	}

	item := &models.SubmittedReport{
		ReportType:     result.ReportType,
		Year:           result.Year,
		Quarter:        result.Quarter,
		EngineResultID: result.ID,
		RunID:          result.RunID,
		Status:         models.SubmissionStatusActive,
		SubmittedBy:    submittedBy,
	}

	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		active, err := s.Repo.ListActiveSubmittedReportsTx(ctx, tx, result.ReportType, result.Year, result.Quarter)
		if err != nil {
			return err
		}
		for _, prev := range active {
			if err := s.Repo.MarkSubmittedReportSupersededTx(ctx, tx, prev.ID); err != nil {
				return err
			}
		}
		return s.Repo.CreateSubmittedReportTx(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Info("report submitted",
			zap.String("report_type", result.ReportType),
			zap.Int("year", result.Year),
			zap.String("quarter", result.Quarter),
			zap.Uint64("engine_result_id", result.ID))
	}
	return item, nil
}

// Resolve returns the submission together with its engine result. A dangling
// engine_result reference is a detectable error, not a crash.
func (s *SubmissionService) Resolve(ctx context.Context, id uint64) (*models.SubmittedReport, *models.EngineResult, error) {
	sub, err := s.Repo.GetSubmittedReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, nil
	}
	result, err := s.Repo.GetEngineResult(ctx, sub.EngineResultID)
	if err != nil {
		return nil, nil, err
	}
	if result == nil {
		return sub, nil, fmt.Errorf("%w: submission %d -> result %d", ErrDanglingResult, sub.ID, sub.EngineResultID)
	}
	return sub, result, nil
}
