package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/repository"
	"ifrs17/internal/service"
)

type SubmissionHandler struct {
	Repo    repository.Repository
	Service *service.SubmissionService
	Logger  *zap.Logger
}

func (h *SubmissionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/submissions")
	group.POST("", h.submit)
	group.GET("", h.list)
	group.GET("/:id", h.get)
}

type submitRequest struct {
	EngineResultID uint64 `json:"engine_result_id" binding:"required"`
}

// @Summary Submit an engine result as the official report
// @Tags submissions
// @Param request body submitRequest true "engine result to publish"
// @Success 200 {object} apiResponse
// @Router /api/v1/submissions [post]
func (h *SubmissionHandler) submit(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Service.Submit(c.Request.Context(), req.EngineResultID, actor(c))
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			Error(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("submission failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List submitted reports
// @Tags submissions
// @Param report_type query string false "report type code"
// @Param year query int false "year"
// @Param quarter query string false "Q1..Q4"
// @Param status query string false "active|superseded"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/submissions [get]
func (h *SubmissionHandler) list(c *gin.Context) {
	params := repository.ListSubmittedReportsParams{
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
		ReportType: strQueryPtr(c, "report_type"),
		Year:       intQueryPtr(c, "year"),
		Quarter:    strQueryPtr(c, "quarter"),
		Status:     strQueryPtr(c, "status"),
	}
	items, err := h.Repo.ListSubmittedReports(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get a submission with its engine result
// @Tags submissions
// @Param id path int true "submission id"
// @Success 200 {object} apiResponse
// @Router /api/v1/submissions/{id} [get]
func (h *SubmissionHandler) get(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	sub, result, err := h.Service.Resolve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDanglingResult) {
			Error(c, http.StatusConflict, err.Error(), map[string]any{"submission": sub})
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if sub == nil {
		Error(c, http.StatusNotFound, "submission not found", nil)
		return
	}
	Ok(c, gin.H{"submission": sub, "result": result}, nil)
}
