package handler

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
)

// EngineConfigHandler manages calculation and conversion engine configs,
// including uploaded script blobs. List responses omit script bytes; the
// script travels base64-encoded in save requests only.
type EngineConfigHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *EngineConfigHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/engine-configs")
	group.GET("/calculation", h.listCalculation)
	group.GET("/calculation/:id", h.getCalculation)
	group.POST("/calculation", h.saveCalculation)
	group.GET("/conversion", h.listConversion)
	group.GET("/conversion/:id", h.getConversion)
	group.POST("/conversion", h.saveConversion)
}

type engineConfigRequest struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name" binding:"required"`
	BatchType     string `json:"batch_type" binding:"required"`
	BatchModel    string `json:"batch_model" binding:"required"`
	InsuranceType string `json:"insurance_type"`
	EngineType    string `json:"engine_type"`
	ScriptName    string `json:"script_name"`
	ScriptBase64  string `json:"script_base64"`
}

func (r *engineConfigRequest) scriptBytes() ([]byte, error) {
	if strings.TrimSpace(r.ScriptBase64) == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(r.ScriptBase64)
}

// @Summary List calculation engine configs
// @Tags engine-configs
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/calculation [get]
func (h *EngineConfigHandler) listCalculation(c *gin.Context) {
	items, err := h.Repo.ListCalculationConfigs(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get calculation engine config
// @Tags engine-configs
// @Param id path int true "config id"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/calculation/{id} [get]
func (h *EngineConfigHandler) getCalculation(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetCalculationConfig(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "calculation config not found", nil)
		return
	}
	Ok(c, gin.H{
		"id":             item.ID,
		"name":           item.Name,
		"batch_type":     item.BatchType,
		"batch_model":    item.BatchModel,
		"insurance_type": item.InsuranceType,
		"engine_type":    item.EngineType,
		"script_name":    item.ScriptName,
		"has_script":     item.HasScript(),
	}, nil)
}

// @Summary Create or update a calculation engine config
// @Tags engine-configs
// @Param request body engineConfigRequest true "config with optional base64 script"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/calculation [post]
func (h *EngineConfigHandler) saveCalculation(c *gin.Context) {
	var req engineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	script, err := req.scriptBytes()
	if err != nil {
		Error(c, http.StatusBadRequest, "script_base64 is not valid base64", nil)
		return
	}
	item := &models.CalculationConfig{
		ID:            req.ID,
		Name:          strings.TrimSpace(req.Name),
		BatchType:     strings.TrimSpace(req.BatchType),
		BatchModel:    strings.ToUpper(strings.TrimSpace(req.BatchModel)),
		InsuranceType: strings.TrimSpace(req.InsuranceType),
		EngineType:    strings.TrimSpace(req.EngineType),
		ScriptName:    strings.TrimSpace(req.ScriptName),
		ScriptBytes:   script,
		CreatedBy:     actor(c),
	}
	if err := h.Repo.SaveCalculationConfig(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("calculation config saved",
			zap.Uint64("id", item.ID),
			zap.String("name", item.Name),
			zap.Bool("has_script", item.HasScript()))
	}
	Ok(c, gin.H{"id": item.ID, "has_script": item.HasScript()}, nil)
}

// @Summary List conversion engine configs
// @Tags engine-configs
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/conversion [get]
func (h *EngineConfigHandler) listConversion(c *gin.Context) {
	items, err := h.Repo.ListConversionConfigs(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get conversion engine config
// @Tags engine-configs
// @Param id path int true "config id"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/conversion/{id} [get]
func (h *EngineConfigHandler) getConversion(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetConversionConfig(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "conversion config not found", nil)
		return
	}
	Ok(c, gin.H{
		"id":             item.ID,
		"name":           item.Name,
		"batch_type":     item.BatchType,
		"batch_model":    item.BatchModel,
		"insurance_type": item.InsuranceType,
		"engine_type":    item.EngineType,
		"script_name":    item.ScriptName,
		"has_script":     item.HasScript(),
	}, nil)
}

// @Summary Create or update a conversion engine config
// @Tags engine-configs
// @Param request body engineConfigRequest true "config with optional base64 script"
// @Success 200 {object} apiResponse
// @Router /api/v1/engine-configs/conversion [post]
func (h *EngineConfigHandler) saveConversion(c *gin.Context) {
	var req engineConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	script, err := req.scriptBytes()
	if err != nil {
		Error(c, http.StatusBadRequest, "script_base64 is not valid base64", nil)
		return
	}
	item := &models.ConversionConfig{
		ID:            req.ID,
		Name:          strings.TrimSpace(req.Name),
		BatchType:     strings.TrimSpace(req.BatchType),
		BatchModel:    strings.ToUpper(strings.TrimSpace(req.BatchModel)),
		InsuranceType: strings.TrimSpace(req.InsuranceType),
		EngineType:    strings.TrimSpace(req.EngineType),
		ScriptName:    strings.TrimSpace(req.ScriptName),
		ScriptBytes:   script,
		CreatedBy:     actor(c),
	}
	if err := h.Repo.SaveConversionConfig(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("conversion config saved",
			zap.Uint64("id", item.ID),
			zap.String("name", item.Name),
			zap.Bool("has_script", item.HasScript()))
	}
	Ok(c, gin.H{"id": item.ID, "has_script": item.HasScript()}, nil)
}
