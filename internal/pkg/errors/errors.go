package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторный импорт забега с тем же ID).
	ErrConflict = errors.New("resource state conflict")

	// ErrCourseNotLoaded используется при попытке начать забег без трассы или с пустой трассой.
	ErrCourseNotLoaded = errors.New("course not loaded")

	// ErrInvalidState используется, когда операция недопустима в текущем состоянии забега.
	ErrInvalidState = errors.New("invalid run state")
)
