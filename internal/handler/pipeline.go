package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// PipelineHandler reports aggregate pipeline health: run, result and audited
// value counts plus the success/error split.
type PipelineHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *PipelineHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/pipeline/health", h.health)
}

// @Summary Pipeline health counters
// @Tags pipeline
// @Success 200 {object} apiResponse
// @Router /api/v1/pipeline/health [get]
func (h *PipelineHandler) health(c *gin.Context) {
	ctx := c.Request.Context()

	runs, err := h.Repo.CountDistinctRuns(ctx)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	success := models.ResultStatusSuccess
	succeeded, err := h.Repo.CountEngineResults(ctx, repository.ListEngineResultsParams{Status: &success})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	failure := models.ResultStatusError
	failed, err := h.Repo.CountEngineResults(ctx, repository.ListEngineResultsParams{Status: &failure})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	values, err := h.Repo.CountCalculationValues(ctx, nil)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	Ok(c, gin.H{
		"runs":           runs,
		"results":        succeeded + failed,
		"success":        succeeded,
		"error":          failed,
		"audited_values": values,
	}, nil)
}
