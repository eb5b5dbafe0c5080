package repository

import (
	"context"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
)

// RunRepository хранит коллекции завершённых забегов по трассам.
// Get(courseID) и Append(courseID, run) образуют контракт хранилища для ранжирования.
type RunRepository interface {
	// Append добавляет забег в коллекцию трассы courseID. Повтор ID → apperrors.ErrConflict.
	Append(ctx context.Context, courseID string, run *entity.Run) error
	// GetByCourse возвращает все забеги трассы вместе со сплитами
	GetByCourse(ctx context.Context, courseID string) ([]entity.Run, error)
	GetByID(ctx context.Context, id string) (*entity.Run, error)
	Delete(ctx context.Context, id string) error
	DeleteByCourse(ctx context.Context, courseID string) error
}
