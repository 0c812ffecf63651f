package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// ErrConfig marks configuration errors that reject a generation request
// wholesale, before any script executes.
var ErrConfig = errors.New("generation configuration error")

// Auditor is the best-effort post-commit hook that decomposes a disclosure
// payload into audited value rows. Its error never affects the run.
type Auditor interface {
	Populate(ctx context.Context, result *models.EngineResult, payload json.RawMessage) (int, error)
}

type GenerateRequest struct {
	ModelDefinitionID   uint64
	BatchIDs            []uint64
	LineOfBusinessIDs   []uint64
	ReportTypeIDs       []uint64
	CalculationEngineID uint64
	ConversionEngineID  uint64
	CreatedBy           string
}

type RunSummary struct {
	RunID        string                `json:"run_id"`
	Results      []models.EngineResult `json:"results"`
	SuccessCount int                   `json:"success_count"`
	ErrorCount   int                   `json:"error_count"`
	AuditedCount int                   `json:"audited_count"`
}

// Orchestrator drives one report-generation request: context assembly, the
// conversion pass over all batches, the calculation matrix over
// (batch, report type) pairs, persistence of every attempt as its own
// EngineResult row and the post-commit audit hook.
type Orchestrator struct {
	Repo        repository.Repository
	Conversion  *ConversionStage
	Calculation *CalculationStage
	Audit       Auditor
	Logger      *zap.Logger

	EngineVersion string
}

// Generate executes the full matrix synchronously. Configuration errors
// (unknown model, no completed batches, no enabled report types) abort the
// request; per-unit script failures become Error rows and never block
// sibling units.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*RunSummary, error) {
	model, batches, lobs, reportTypes, err := o.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	var convConfig *models.ConversionConfig
	if req.ConversionEngineID > 0 {
		convConfig, err = o.Repo.GetConversionConfig(ctx, req.ConversionEngineID)
		if err != nil {
			return nil, err
		}
		if convConfig == nil {
			return nil, fmt.Errorf("%w: conversion engine %d not found", ErrConfig, req.ConversionEngineID)
		}
	}
	var calcConfig *models.CalculationConfig
	if req.CalculationEngineID > 0 {
		calcConfig, err = o.Repo.GetCalculationConfig(ctx, req.CalculationEngineID)
		if err != nil {
			return nil, err
		}
		if calcConfig == nil {
			return nil, fmt.Errorf("%w: calculation engine %d not found", ErrConfig, req.CalculationEngineID)
		}
	}

	runID := uuid.NewString()
	codes := make([]string, 0, len(reportTypes))
	for _, rt := range reportTypes {
		codes = append(codes, rt.Code)
	}
	params := FieldParameters{
		ModelType:           model.ModelType,
		Year:                batches[0].Year,
		Quarter:             batches[0].Quarter,
		LineOfBusinessIDs:   req.LineOfBusinessIDs,
		ReportTypeIDs:       req.ReportTypeIDs,
		ReportTypeCodes:     codes,
		CalculationEngineID: req.CalculationEngineID,
		ConversionEngineID:  req.ConversionEngineID,
		EngineVersion:       o.EngineVersion,
	}
	rc := BuildContext(runID, model, batches, lobs, params)

	currency := "USD"
	if len(rc.LineOfBusinesses) > 0 {
		currency = rc.LineOfBusinesses[0].Currency
	}

	newResult := func(batch BatchMeta, reportType, status string, payload json.RawMessage) models.EngineResult {
		return models.EngineResult{
			RunID:      runID,
			ModelType:  model.ModelType,
			ReportType: reportType,
			Year:       batch.Year,
			Quarter:    batch.Quarter,
			Currency:   currency,
			BatchID:    batch.ID,
			Status:     status,
			Result:     datatypes.JSON(payload),
			CreatedBy:  req.CreatedBy,
		}
	}

	// Conversion pass: every batch, before any calculation starts.
	results := make([]models.EngineResult, 0, len(rc.BatchData)*(len(reportTypes)+1))
	convFailed := map[uint64]bool{}
	for _, batch := range rc.BatchData {
		payload, fallback, convErr := o.Conversion.Convert(ctx, rc, batch, convConfig)
		if convErr != nil {
			convFailed[batch.ID] = true
			results = append(results, newResult(batch, models.ReportTypeStagingTable,
				models.ResultStatusError, conversionErrorPayload(runID, convErr)))
			continue
		}
		if fallback && o.Logger != nil {
			o.Logger.Info("conversion fell back to synthetic staging data",
				zap.String("run_id", runID), zap.Uint64("batch_id", batch.ID))
		}
		results = append(results, newResult(batch, models.ReportTypeStagingTable,
			models.ResultStatusSuccess, payload))
	}

	// Calculation matrix.
	for _, batch := range rc.BatchData {
		if convFailed[batch.ID] {
			continue
		}
		for _, rt := range reportTypes {
			payload, status := o.Calculation.Calculate(ctx, rc, batch, rt.Code, calcConfig)
			results = append(results, newResult(batch, rt.Code, status, payload))
		}
	}

	input := &models.EngineInput{
		RunID:           runID,
		ModelSnapshot:   mustJSON(rc.ModelDefinition),
		BatchData:       mustJSON(rc.BatchData),
		FieldParameters: mustJSON(rc.FieldParameters),
		CreatedBy:       req.CreatedBy,
	}

	// One transaction for the whole batch of rows; scripts already ran
	// outside it.
	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := o.Repo.CreateEngineInputTx(ctx, tx, input); err != nil {
			return err
		}
		for i := range results {
			if err := o.Repo.CreateEngineResultTx(ctx, tx, &results[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: runID, Results: results}
	for i := range results {
		if results[i].Status == models.ResultStatusSuccess {
			summary.SuccessCount++
		} else {
			summary.ErrorCount++
		}
	}

	// Post-commit audit hook. Population failure is telemetry loss, not a
	// generation failure.
	if o.Audit != nil {
		for i := range results {
			res := &results[i]
			if res.ReportType != models.ReportTypeDisclosure || res.Status != models.ResultStatusSuccess {
				continue
			}
			count, auditErr := o.Audit.Populate(ctx, res, json.RawMessage(res.Result))
			if auditErr != nil {
				if o.Logger != nil {
					o.Logger.Error("audit trail population failed",
						zap.String("run_id", runID),
						zap.Uint64("engine_result_id", res.ID),
						zap.Error(auditErr))
				}
				continue
			}
			summary.AuditedCount += count
		}
	}

	return summary, nil
}

// resolve loads and validates everything the request references.
func (o *Orchestrator) resolve(ctx context.Context, req GenerateRequest) (*models.ModelDefinition, []models.Batch, []models.LineOfBusiness, []models.ReportType, error) {
	model, err := o.Repo.GetModelDefinition(ctx, req.ModelDefinitionID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if model == nil {
		return nil, nil, nil, nil, fmt.Errorf("%w: model definition %d not found", ErrConfig, req.ModelDefinitionID)
	}

	batches, err := o.Repo.ListBatchesByIDs(ctx, req.BatchIDs)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	completed := batches[:0]
	for _, b := range batches {
		if b.Status == models.BatchStatusCompleted {
			completed = append(completed, b)
		}
	}
	if len(completed) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: no completed batches selected", ErrConfig)
	}

	lobs, err := o.Repo.ListLineOfBusinessesByIDs(ctx, req.LineOfBusinessIDs)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(lobs) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: no lines of business selected", ErrConfig)
	}

	reportTypes, err := o.Repo.ListReportTypes(ctx, model.ModelType, req.ReportTypeIDs)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(reportTypes) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("%w: no enabled report types selected", ErrConfig)
	}

	return model, completed, lobs, reportTypes, nil
}

func conversionErrorPayload(runID string, err error) json.RawMessage {
	fields := map[string]any{"error": err.Error()}
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		fields["stdout"] = convErr.Outcome.Stdout
		fields["stderr"] = convErr.Outcome.Stderr
		fields["return_code"] = convErr.Outcome.ExitCode
		fields["outcome"] = string(convErr.Outcome.Kind)
	}
	return errorPayload(runID, fields)
}
