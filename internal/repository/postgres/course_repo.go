package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

// CourseRepo реализует repository.CourseRepository
type CourseRepo struct {
	db *gorm.DB
}

// NewCourseRepo создает новый репозиторий трасс
func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// Create сохраняет новую трассу
func (r *CourseRepo) Create(ctx context.Context, course *entity.Course) error {
	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: course %s already exists", apperrors.ErrConflict, course.ID)
		}
		return err
	}
	return nil
}

// GetByID возвращает трассу по ID
func (r *CourseRepo) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	var course entity.Course
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// List возвращает все трассы, новые первыми
func (r *CourseRepo) List(ctx context.Context) ([]entity.Course, error) {
	var courses []entity.Course
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

// Delete удаляет трассу
func (r *CourseRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Course{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
