package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/checkrun-api/internal/handler/dto"
	"github.com/yourusername/checkrun-api/internal/service"
)

// AuthHandler обрабатывает вход администратора
type AuthHandler struct {
	adminAuth *service.AdminAuthService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(adminAuth *service.AdminAuthService) *AuthHandler {
	return &AuthHandler{adminAuth: adminAuth}
}

// Login проверяет пароль администратора и возвращает токен
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.adminAuth.Login(req.Password)
	if err != nil {
		handleError(c, "AuthHandler", err)
		return
	}
	c.JSON(http.StatusOK, token)
}
