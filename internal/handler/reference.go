package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// ReferenceHandler serves the read-mostly lookup data the generation request
// is assembled from: batches, lines of business and report type gates.
type ReferenceHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *ReferenceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1")
	group.GET("/batches", h.listBatches)
	group.GET("/batches/:id", h.getBatch)
	group.GET("/line-of-businesses", h.listLineOfBusinesses)
	group.GET("/report-types", h.listReportTypes)
	group.PUT("/report-types", h.upsertReportType)
}

// @Summary List batches
// @Tags reference
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param batch_model query string false "PAA|GMM|VFA"
// @Param status query string false "pending|completed|failed"
// @Param year query int false "year"
// @Param quarter query string false "Q1..Q4"
// @Success 200 {object} apiResponse
// @Router /api/v1/batches [get]
func (h *ReferenceHandler) listBatches(c *gin.Context) {
	params := repository.ListBatchesParams{
		Limit:      intQuery(c, "limit", 50),
		Offset:     intQuery(c, "offset", 0),
		BatchModel: strQueryPtr(c, "batch_model"),
		Status:     strQueryPtr(c, "status"),
		Year:       intQueryPtr(c, "year"),
		Quarter:    strQueryPtr(c, "quarter"),
	}
	items, err := h.Repo.ListBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get batch with uploads
// @Tags reference
// @Param id path int true "batch id"
// @Success 200 {object} apiResponse
// @Router /api/v1/batches/{id} [get]
func (h *ReferenceHandler) getBatch(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetBatch(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "batch not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List lines of business
// @Tags reference
// @Success 200 {object} apiResponse
// @Router /api/v1/line-of-businesses [get]
func (h *ReferenceHandler) listLineOfBusinesses(c *gin.Context) {
	items, err := h.Repo.ListLineOfBusinesses(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary List report type gates
// @Tags reference
// @Success 200 {object} apiResponse
// @Router /api/v1/report-types [get]
func (h *ReferenceHandler) listReportTypes(c *gin.Context) {
	items, err := h.Repo.ListAllReportTypes(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type reportTypeRequest struct {
	BatchModel string `json:"batch_model" binding:"required"`
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Enabled    bool   `json:"enabled"`
}

// @Summary Enable or disable a report type for a measurement model
// @Tags reference
// @Param request body reportTypeRequest true "report type gate"
// @Success 200 {object} apiResponse
// @Router /api/v1/report-types [put]
func (h *ReferenceHandler) upsertReportType(c *gin.Context) {
	var req reportTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.ReportType{
		BatchModel: strings.ToUpper(strings.TrimSpace(req.BatchModel)),
		Code:       strings.TrimSpace(req.Code),
		Name:       strings.TrimSpace(req.Name),
		Enabled:    req.Enabled,
	}
	if err := h.Repo.UpsertReportType(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("report type gate updated",
			zap.String("batch_model", item.BatchModel),
			zap.String("code", item.Code),
			zap.Bool("enabled", item.Enabled))
	}
	Ok(c, item, nil)
}
