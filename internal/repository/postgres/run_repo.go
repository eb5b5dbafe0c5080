package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

// RunRepo реализует repository.RunRepository
type RunRepo struct {
	db *gorm.DB
}

// NewRunRepo создает новый репозиторий забегов
func NewRunRepo(db *gorm.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Append добавляет забег в коллекцию трассы. Забег и его сплиты пишутся в одной транзакции.
func (r *RunRepo) Append(ctx context.Context, courseID string, run *entity.Run) error {
	run.CourseID = courseID
	for i := range run.Splits {
		run.Splits[i].RunID = run.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Create с ассоциациями сохранит и run_splits
		return tx.Create(run).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run %s already stored", apperrors.ErrConflict, run.ID)
		}
		log.Printf("[RunRepo] Ошибка сохранения забега %s для трассы %s: %v", run.ID, courseID, err)
		return err
	}
	return nil
}

// GetByCourse возвращает все забеги трассы, отсортированные по итоговому времени
func (r *RunRepo) GetByCourse(ctx context.Context, courseID string) ([]entity.Run, error) {
	var runs []entity.Run
	err := r.db.WithContext(ctx).
		Preload("Splits", func(db *gorm.DB) *gorm.DB {
			return db.Order("checkpoint_index ASC")
		}).
		Where("course_id = ?", courseID).
		Order("total_ms ASC, completed_at ASC").
		Find(&runs).Error
	// пустой слайс - валидный результат
	return runs, err
}

// GetByID возвращает забег по ID
func (r *RunRepo) GetByID(ctx context.Context, id string) (*entity.Run, error) {
	var run entity.Run
	err := r.db.WithContext(ctx).
		Preload("Splits", func(db *gorm.DB) *gorm.DB {
			return db.Order("checkpoint_index ASC")
		}).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// Delete удаляет забег вместе со сплитами
func (r *RunRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&entity.RunSplit{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entity.Run{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// DeleteByCourse удаляет всю коллекцию забегов трассы
func (r *RunRepo) DeleteByCourse(ctx context.Context, courseID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&entity.Run{}).Select("id").Where("course_id = ?", courseID)
		if err := tx.Where("run_id IN (?)", sub).Delete(&entity.RunSplit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", courseID).Delete(&entity.Run{}).Error; err != nil {
			return err
		}
		log.Printf("[RunRepo] Удалены все забеги трассы %s", courseID)
		return nil
	})
}
