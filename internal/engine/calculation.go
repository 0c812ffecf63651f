package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/scriptrunner"
)

// Fixed platform scripts under EngineConfig.ScriptDir.
const (
	DisclosureScriptName = "disclosure_engine.py"
	FallbackScriptName   = "generic_calculation.py"
)

// CalculationStage runs one calculation script per (batch, report type) pair.
// Every outcome, success or failure, becomes payload data for an EngineResult
// row; nothing is raised past this boundary.
type CalculationStage struct {
	Runner    *scriptrunner.Runner
	ScriptDir string
	Logger    *zap.Logger
}

// Calculate resolves the script for the report type and invokes it. The
// returned status is models.ResultStatusSuccess or models.ResultStatusError
// and the payload is always non-nil.
func (s *CalculationStage) Calculate(ctx context.Context, rc RunContext, batch BatchMeta, reportType string, calc *models.CalculationConfig) (json.RawMessage, string) {
	script, ok := s.resolveScript(reportType, calc)
	if !ok {
		return errorPayload(rc.RunID, map[string]any{
			"error": "no calculation script available for report type " + reportType,
		}), models.ResultStatusError
	}

	focused := rc.WithCurrentBatch(batch).WithCurrentReportType(reportType)

	out, err := s.Runner.Run(ctx, script, focused)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("calculation invocation failed",
				zap.String("run_id", rc.RunID),
				zap.String("report_type", reportType),
				zap.Error(err))
		}
		return errorPayload(rc.RunID, map[string]any{"error": err.Error()}), models.ResultStatusError
	}

	switch out.Kind {
	case scriptrunner.OutcomeSuccess:
		return out.Data, models.ResultStatusSuccess
	case scriptrunner.OutcomeMalformedOutput:
		// Keep the raw streams so the operator can debug a script that
		// printed non-JSON.
		return errorPayload(rc.RunID, map[string]any{
			"error":  "script produced non-JSON output",
			"stdout": out.Stdout,
			"stderr": out.Stderr,
		}), models.ResultStatusError
	case scriptrunner.OutcomeTimedOut:
		return errorPayload(rc.RunID, map[string]any{
			"error":  "script timed out",
			"stdout": out.Stdout,
			"stderr": out.Stderr,
		}), models.ResultStatusError
	default:
		return errorPayload(rc.RunID, map[string]any{
			"error":       "script exited with an error",
			"stdout":      out.Stdout,
			"stderr":      out.Stderr,
			"return_code": out.ExitCode,
		}), models.ResultStatusError
	}
}

// resolveScript picks the script to run: the disclosure report always uses
// the fixed platform script; other report types use the configured engine's
// upload, falling back to the platform generic script.
func (s *CalculationStage) resolveScript(reportType string, calc *models.CalculationConfig) (scriptrunner.Script, bool) {
	if reportType == models.ReportTypeDisclosure {
		path := filepath.Join(s.ScriptDir, DisclosureScriptName)
		if fileExists(path) {
			return scriptrunner.Script{Name: DisclosureScriptName, Path: path}, true
		}
		return scriptrunner.Script{}, false
	}
	if calc.HasScript() {
		return scriptrunner.Script{Name: calc.ScriptName, Bytes: calc.ScriptBytes}, true
	}
	path := filepath.Join(s.ScriptDir, FallbackScriptName)
	if fileExists(path) {
		return scriptrunner.Script{Name: FallbackScriptName, Path: path}, true
	}
	return scriptrunner.Script{}, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func errorPayload(runID string, fields map[string]any) json.RawMessage {
	payload := map[string]any{
		"status": "failed",
		"run_id": runID,
	}
	for k, v := range fields {
		payload[k] = v
	}
	raw, _ := json.Marshal(payload)
	return raw
}
