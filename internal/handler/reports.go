package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/engine"
	"ifrs17/internal/report"
	"ifrs17/internal/repository"
)

// ReportHandler exposes the generation pipeline and its outputs: runs,
// per-attempt engine results, audited values and file exports.
type ReportHandler struct {
	Repo          repository.Repository
	Orchestrator  *engine.Orchestrator
	ExportMaxRows int
	Logger        *zap.Logger
}

func (h *ReportHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.POST("/reports/generate", h.generate)
	group.GET("/results", h.listResults)
	group.GET("/results/:id", h.getResult)
	group.GET("/results/:id/export", h.exportResult)
	group.GET("/runs/:run_id/input", h.getRunInput)
	group.GET("/values", h.listValues)
	group.GET("/values/:run_id/:value_id", h.getValue)
}

type generateRequest struct {
	ModelDefinitionID   uint64   `json:"model_definition_id" binding:"required"`
	BatchIDs            []uint64 `json:"batch_ids" binding:"required"`
	LineOfBusinessIDs   []uint64 `json:"line_of_business_ids"`
	ReportTypeIDs       []uint64 `json:"report_type_ids"`
	CalculationEngineID uint64   `json:"calculation_engine_id"`
	ConversionEngineID  uint64   `json:"conversion_engine_id"`
}

// @Summary Generate reports for a batch selection
// @Tags reports
// @Param request body generateRequest true "generation request"
// @Success 200 {object} apiResponse
// @Router /api/v1/reports/generate [post]
func (h *ReportHandler) generate(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "orchestrator unavailable", nil)
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	summary, err := h.Orchestrator.Generate(c.Request.Context(), engine.GenerateRequest{
		ModelDefinitionID:   req.ModelDefinitionID,
		BatchIDs:            req.BatchIDs,
		LineOfBusinessIDs:   req.LineOfBusinessIDs,
		ReportTypeIDs:       req.ReportTypeIDs,
		CalculationEngineID: req.CalculationEngineID,
		ConversionEngineID:  req.ConversionEngineID,
		CreatedBy:           actor(c),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("report generation failed", zap.Error(err))
		}
		if errors.Is(err, engine.ErrConfig) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, summary, map[string]any{
		"success_count": summary.SuccessCount,
		"error_count":   summary.ErrorCount,
	})
}

// @Summary List engine results
// @Tags reports
// @Param run_id query string false "run id"
// @Param report_type query string false "report type code"
// @Param status query string false "Success|Error"
// @Param year query int false "year"
// @Param quarter query string false "Q1..Q4"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/results [get]
func (h *ReportHandler) listResults(c *gin.Context) {
	params := repository.ListEngineResultsParams{
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
		RunID:      strQueryPtr(c, "run_id"),
		ReportType: strQueryPtr(c, "report_type"),
		Status:     strQueryPtr(c, "status"),
		Year:       intQueryPtr(c, "year"),
		Quarter:    strQueryPtr(c, "quarter"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at":  "created_at",
			"year":        "year",
			"report_type": "report_type",
			"status":      "status",
		}),
		Asc: boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListEngineResults(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountEngineResults(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one engine result
// @Tags reports
// @Param id path int true "engine result id"
// @Success 200 {object} apiResponse
// @Router /api/v1/results/{id} [get]
func (h *ReportHandler) getResult(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetEngineResult(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "engine result not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Export an engine result as xlsx or pdf
// @Tags reports
// @Param id path int true "engine result id"
// @Param format query string false "xlsx|pdf (default xlsx)"
// @Success 200 {file} binary
// @Router /api/v1/results/{id}/export [get]
func (h *ReportHandler) exportResult(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetEngineResult(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "engine result not found", nil)
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "xlsx")))
	name := fmt.Sprintf("%s_%d_%s_%s", item.ReportType, item.Year, item.Quarter, item.RunID)
	switch format {
	case "xlsx":
		data, err := report.RenderWorkbook(item, h.ExportMaxRows)
		if err != nil {
			Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	case "pdf":
		data, err := report.RenderPDF(item, h.ExportMaxRows)
		if err != nil {
			Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".pdf"))
		c.Data(http.StatusOK, "application/pdf", data)
	default:
		Error(c, http.StatusBadRequest, "format must be xlsx or pdf", nil)
	}
}

// @Summary Get the frozen input snapshot of a run
// @Tags reports
// @Param run_id path string true "run id"
// @Success 200 {object} apiResponse
// @Router /api/v1/runs/{run_id}/input [get]
func (h *ReportHandler) getRunInput(c *gin.Context) {
	runID := strings.TrimSpace(c.Param("run_id"))
	if runID == "" {
		Error(c, http.StatusBadRequest, "invalid run_id", nil)
		return
	}
	item, err := h.Repo.GetEngineInput(c.Request.Context(), runID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "engine input not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List audited calculation values
// @Tags reports
// @Param run_id query string false "run id"
// @Param value_prefix query string false "value id prefix, e.g. DR.MA"
// @Param line_of_business query string false "line of business"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/values [get]
func (h *ReportHandler) listValues(c *gin.Context) {
	params := repository.ListCalculationValuesParams{
		Limit:          intQuery(c, "limit", 100),
		Offset:         intQuery(c, "offset", 0),
		RunID:          strQueryPtr(c, "run_id"),
		ValuePrefix:    strQueryPtr(c, "value_prefix"),
		LineOfBusiness: strQueryPtr(c, "line_of_business"),
	}
	items, err := h.Repo.ListCalculationValues(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountCalculationValues(c.Request.Context(), params.RunID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get one audited value with its provenance
// @Tags reports
// @Param run_id path string true "run id"
// @Param value_id path string true "dotted value id"
// @Success 200 {object} apiResponse
// @Router /api/v1/values/{run_id}/{value_id} [get]
func (h *ReportHandler) getValue(c *gin.Context) {
	runID := strings.TrimSpace(c.Param("run_id"))
	valueID := strings.TrimSpace(c.Param("value_id"))
	if runID == "" || valueID == "" {
		Error(c, http.StatusBadRequest, "run_id and value_id are required", nil)
		return
	}
	item, err := h.Repo.GetCalculationValue(c.Request.Context(), runID, valueID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "calculation value not found", nil)
		return
	}
	Ok(c, item, nil)
}
