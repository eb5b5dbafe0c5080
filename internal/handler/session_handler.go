package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/handler/dto"
	"github.com/yourusername/checkrun-api/internal/service"
	"github.com/yourusername/checkrun-api/pkg/auth"
)

// SessionHandler обрабатывает активные забеги
type SessionHandler struct {
	sessionService *service.RunSessionService
	jwtService     *auth.JWTService
}

// NewSessionHandler создает новый обработчик сессий забега
func NewSessionHandler(sessionService *service.RunSessionService, jwtService *auth.JWTService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		jwtService:     jwtService,
	}
}

// StartSession начинает забег и выдаёт тикет для подключения к WebSocket сессии
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.sessionService.StartSession(c.Request.Context(), req.CourseID, req.RunnerName)
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}

	resp := dto.SessionResponse{Session: snap}
	ticket, err := h.jwtService.GenerateWSTicket(snap.ID)
	if err != nil {
		// забег уже идёт, без тикета клиент работает через REST
		log.Printf("[SessionHandler] Не удалось выдать WS-тикет для сессии %s: %v", snap.ID, err)
	} else {
		resp.WSTicket = ticket
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSession возвращает снимок сессии
func (h *SessionHandler) GetSession(c *gin.Context) {
	snap, err := h.sessionService.GetSession(c.GetString("sessionID"))
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: snap})
}

// SubmitScan доставляет payload сканера в сессию
func (h *SessionHandler) SubmitScan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.sessionService.SubmitScan(c.Request.Context(), c.GetString("sessionID"), req.Payload, req.DebounceEnabled())
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// StopSession прерывает забег
func (h *SessionHandler) StopSession(c *gin.Context) {
	snap, err := h.sessionService.StopSession(c.GetString("sessionID"))
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: snap})
}

// RestartSession запускает забег заново
func (h *SessionHandler) RestartSession(c *gin.Context) {
	snap, err := h.sessionService.RestartSession(c.Request.Context(), c.GetString("sessionID"))
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: snap})
}

// PersistRun повторяет сохранение завершённого забега после ошибки хранилища
func (h *SessionHandler) PersistRun(c *gin.Context) {
	snap, err := h.sessionService.PersistPending(c.Request.Context(), c.GetString("sessionID"))
	if err != nil {
		handleError(c, "SessionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.SessionResponse{Session: snap})
}
