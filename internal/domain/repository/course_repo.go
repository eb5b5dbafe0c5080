package repository

import (
	"context"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
)

// CourseRepository определяет методы для работы с трассами
type CourseRepository interface {
	Create(ctx context.Context, course *entity.Course) error
	GetByID(ctx context.Context, id string) (*entity.Course, error)
	List(ctx context.Context) ([]entity.Course, error)
	Delete(ctx context.Context, id string) error
}
