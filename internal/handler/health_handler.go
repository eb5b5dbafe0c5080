package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/websocket"
)

// HealthCheck проверка одной зависимости
type HealthCheck func(ctx context.Context) error

// SessionCounter отдаёт количество активных сессий
type SessionCounter interface {
	ActiveSessions() int
}

// HealthHandler отдаёт состояние сервиса и его зависимостей
type HealthHandler struct {
	checks   map[string]HealthCheck
	hub      websocket.MetricsProvider
	sessions SessionCounter
	timeout  time.Duration
}

// NewHealthHandler создает обработчик /health. checks: имя зависимости → проверка.
func NewHealthHandler(checks map[string]HealthCheck, hub websocket.MetricsProvider, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{
		checks:   checks,
		hub:      hub,
		sessions: sessions,
		timeout:  2 * time.Second,
	}
}

// Health проверяет зависимости. Любая недоступная зависимость даёт 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	resp := gin.H{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().Format(time.RFC3339),
	}
	if h.hub != nil {
		resp["websocket"] = h.hub.GetMetrics()
	}
	if h.sessions != nil {
		resp["active_sessions"] = h.sessions.ActiveSessions()
	}
	c.JSON(code, resp)
}
