package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ifrs17/internal/models"
	"ifrs17/internal/repository"
	"ifrs17/internal/service"
)

type ModelDefinitionHandler struct {
	Repo   repository.Repository
	Locks  *service.ModelLockService
	Logger *zap.Logger
}

func (h *ModelDefinitionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/model-definitions")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("", h.create)
	group.PUT("/:id", h.update)
	group.POST("/:id/lock", h.lock)
	group.DELETE("/:id/lock", h.unlock)
}

type modelDefinitionRequest struct {
	Name        string         `json:"name" binding:"required"`
	ModelType   string         `json:"model_type" binding:"required"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// @Summary List model definitions
// @Tags model-definitions
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param model_type query string false "PAA|GMM|VFA"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions [get]
func (h *ModelDefinitionHandler) list(c *gin.Context) {
	params := repository.ListModelDefinitionsParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		ModelType: strQueryPtr(c, "model_type"),
	}
	items, err := h.Repo.ListModelDefinitions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountModelDefinitions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get model definition
// @Tags model-definitions
// @Param id path int true "model definition id"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions/{id} [get]
func (h *ModelDefinitionHandler) get(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetModelDefinition(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "model definition not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Create model definition
// @Tags model-definitions
// @Param request body modelDefinitionRequest true "model definition"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions [post]
func (h *ModelDefinitionHandler) create(c *gin.Context) {
	var req modelDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	modelType := strings.ToUpper(strings.TrimSpace(req.ModelType))
	switch modelType {
	case models.ModelTypePAA, models.ModelTypeGMM, models.ModelTypeVFA:
	default:
		Error(c, http.StatusBadRequest, "model_type must be PAA, GMM or VFA", nil)
		return
	}
	item := &models.ModelDefinition{
		Name:        strings.TrimSpace(req.Name),
		ModelType:   modelType,
		Description: req.Description,
		Config:      asJSON(req.Config),
		CreatedBy:   actor(c),
	}
	if err := h.Repo.CreateModelDefinition(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Update model definition
// @Tags model-definitions
// @Param id path int true "model definition id"
// @Param request body modelDefinitionRequest true "model definition"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions/{id} [put]
func (h *ModelDefinitionHandler) update(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req modelDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Repo.GetModelDefinition(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "model definition not found", nil)
		return
	}
	if h.Locks != nil {
		if err := h.Locks.CheckEditable(item, actor(c)); err != nil {
			Error(c, http.StatusConflict, err.Error(), nil)
			return
		}
	}
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	if req.Config != nil {
		item.Config = asJSON(req.Config)
	}
	if err := h.Repo.UpdateModelDefinition(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Acquire edit lock
// @Tags model-definitions
// @Param id path int true "model definition id"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions/{id}/lock [post]
func (h *ModelDefinitionHandler) lock(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Locks.Acquire(c.Request.Context(), id, actor(c))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrModelNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrModelLocked):
			status = http.StatusConflict
		}
		Error(c, status, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Release edit lock
// @Tags model-definitions
// @Param id path int true "model definition id"
// @Success 200 {object} apiResponse
// @Router /api/v1/model-definitions/{id}/lock [delete]
func (h *ModelDefinitionHandler) unlock(c *gin.Context) {
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Locks.Release(c.Request.Context(), id, actor(c)); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrModelNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrModelLocked):
			status = http.StatusConflict
		}
		Error(c, status, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"released": true}, nil)
}

func asJSON(m map[string]any) datatypes.JSON {
	if m == nil {
		return datatypes.JSON([]byte("{}"))
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(raw)
}
