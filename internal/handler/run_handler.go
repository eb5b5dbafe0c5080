package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/handler/dto"
	"github.com/yourusername/checkrun-api/internal/service"
)

// RunHandler обрабатывает запросы к сохранённым забегам
type RunHandler struct {
	runService *service.RunService
}

// NewRunHandler создает новый обработчик забегов
func NewRunHandler(runService *service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// GetRun возвращает забег по ID
func (h *RunHandler) GetRun(c *gin.Context) {
	runID := c.GetString("runID")

	run, err := h.runService.GetRun(c.Request.Context(), runID)
	if err != nil {
		handleError(c, "RunHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewRunResponse(run, 0))
}

// ShareRun возвращает ссылку для переноса забега на другое устройство
func (h *RunHandler) ShareRun(c *gin.Context) {
	runID := c.GetString("runID")

	link, err := h.runService.ShareLink(c.Request.Context(), runID)
	if err != nil {
		handleError(c, "RunHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}

// ImportRun принимает ссылку или запись забега с другого устройства
func (h *RunHandler) ImportRun(c *gin.Context) {
	var req dto.ImportRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Link == "" && req.Run == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link or run is required"})
		return
	}

	ctx := c.Request.Context()
	var err error
	var resp *dto.RunResponse
	if req.Run != nil {
		run, e := h.runService.ImportRun(ctx, req.Run)
		err = e
		resp = dto.NewRunResponse(run, 0)
	} else {
		run, e := h.runService.ImportLink(ctx, req.Link)
		err = e
		resp = dto.NewRunResponse(run, 0)
	}
	if err != nil {
		handleError(c, "RunHandler", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DeleteRun удаляет забег (только админ)
func (h *RunHandler) DeleteRun(c *gin.Context) {
	runID := c.GetString("runID")

	if err := h.runService.DeleteRun(c.Request.Context(), runID); err != nil {
		handleError(c, "RunHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}
