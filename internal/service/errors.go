package service

import (
	"fmt"

	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

// Определяем кастомные ошибки для сервисов
var (
	ErrSessionNotFound  = fmt.Errorf("session: %w", apperrors.ErrNotFound)
	ErrInvalidPassword  = fmt.Errorf("invalid admin password: %w", apperrors.ErrUnauthorized)
	ErrAdminDisabled    = fmt.Errorf("admin login is not configured: %w", apperrors.ErrForbidden)
	ErrInvalidShareLink = fmt.Errorf("invalid share link: %w", apperrors.ErrValidation)
)
