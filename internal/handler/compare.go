package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/compare"
)

type CompareHandler struct {
	Comparator *compare.Comparator
	Logger     *zap.Logger
}

func (h *CompareHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/reports/compare", h.compareValue)
}

// @Summary Compare one value between two runs
// @Tags compare
// @Param current_run_id query string true "current run id"
// @Param prior_run_id query string true "prior run id"
// @Param value_id query string true "dotted value id"
// @Success 200 {object} apiResponse
// @Router /api/v1/reports/compare [get]
func (h *CompareHandler) compareValue(c *gin.Context) {
	if h.Comparator == nil {
		Error(c, http.StatusInternalServerError, "comparator unavailable", nil)
		return
	}
	currentRunID := strings.TrimSpace(c.Query("current_run_id"))
	priorRunID := strings.TrimSpace(c.Query("prior_run_id"))
	valueID := strings.TrimSpace(c.Query("value_id"))
	if currentRunID == "" || priorRunID == "" || valueID == "" {
		Error(c, http.StatusBadRequest, "current_run_id, prior_run_id and value_id are required", nil)
		return
	}

	result, err := h.Comparator.Compare(c.Request.Context(), currentRunID, priorRunID, valueID)
	if err != nil {
		var notFound *compare.NotFoundError
		if errors.As(err, &notFound) {
			Error(c, http.StatusNotFound, err.Error(), map[string]any{
				"side":   notFound.Side,
				"run_id": notFound.RunID,
			})
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("comparison failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}
