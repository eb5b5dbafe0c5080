package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/domain/repository"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

const maxCourseNameLength = 100

// CourseService управляет трассами
type CourseService struct {
	courseRepo repository.CourseRepository
	runRepo    repository.RunRepository
	board      BoardInvalidator
	now        func() time.Time
}

// NewCourseService создает новый сервис трасс
func NewCourseService(courseRepo repository.CourseRepository, runRepo repository.RunRepository, board BoardInvalidator) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		runRepo:    runRepo,
		board:      board,
		now:        time.Now,
	}
}

// NormalizeEntries обрезает пробелы и выбрасывает пустые строки. Порядок и повторы сохраняются.
func NormalizeEntries(entries []string) []string {
	return lo.FilterMap(entries, func(e string, _ int) (string, bool) {
		e = strings.TrimSpace(e)
		return e, e != ""
	})
}

// CreateCourse создает трассу из упорядоченного списка payload'ов
func (s *CourseService) CreateCourse(ctx context.Context, name string, entries []string) (*entity.Course, error) {
	normalized := NormalizeEntries(entries)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: course must contain at least one checkpoint", apperrors.ErrValidation)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Course " + s.now().Format("2006-01-02")
	}
	if len(name) > maxCourseNameLength {
		return nil, fmt.Errorf("%w: course name is longer than %d characters", apperrors.ErrValidation, maxCourseNameLength)
	}

	course := &entity.Course{
		ID:      uuid.New().String(),
		Name:    name,
		Entries: normalized,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	log.Printf("[CourseService] Создана трасса %s (%s), точек: %d", course.ID, course.Name, len(course.Entries))
	return course, nil
}

// GetCourse возвращает трассу по ID
func (s *CourseService) GetCourse(ctx context.Context, id string) (*entity.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// ListCourses возвращает все трассы
func (s *CourseService) ListCourses(ctx context.Context) ([]entity.Course, error) {
	courses, err := s.courseRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []entity.Course{}
	}
	return courses, nil
}

// DeleteCourse удаляет трассу вместе с её забегами
func (s *CourseService) DeleteCourse(ctx context.Context, id string) error {
	if _, err := s.courseRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.runRepo.DeleteByCourse(ctx, id); err != nil {
		return fmt.Errorf("failed to delete runs of course %s: %w", id, err)
	}
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.board.Invalidate(ctx, id)
	log.Printf("[CourseService] Трасса %s удалена", id)
	return nil
}
