package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/domain/repository"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

// RunService работает с сохранёнными забегами: список, импорт, удаление, ссылки
type RunService struct {
	courseRepo repository.CourseRepository
	runRepo    repository.RunRepository
	board      BoardInvalidator
	share      *ShareService
	metrics    RunMetrics
}

// NewRunService создает новый сервис забегов
func NewRunService(
	courseRepo repository.CourseRepository,
	runRepo repository.RunRepository,
	board BoardInvalidator,
	share *ShareService,
) *RunService {
	return &RunService{
		courseRepo: courseRepo,
		runRepo:    runRepo,
		board:      board,
		share:      share,
		metrics:    noopRunMetrics{},
	}
}

// SetMetrics подключает учёт импортированных забегов
func (s *RunService) SetMetrics(m RunMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// ListCourseRuns возвращает забеги трассы по возрастанию итогового времени
func (s *RunService) ListCourseRuns(ctx context.Context, courseID string) ([]entity.Run, error) {
	runs, err := s.runRepo.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []entity.Run{}
	}
	return runs, nil
}

// GetRun возвращает забег по ID
func (s *RunService) GetRun(ctx context.Context, id string) (*entity.Run, error) {
	return s.runRepo.GetByID(ctx, id)
}

// DeleteRun удаляет забег и сбрасывает таблицу его трассы
func (s *RunService) DeleteRun(ctx context.Context, id string) error {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.runRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.board.Invalidate(ctx, run.CourseID)
	log.Printf("[RunService] Забег %s трассы %s удалён", id, run.CourseID)
	return nil
}

// ImportRun сохраняет забег, полученный с другого устройства.
// Если трассы нет локально, она создаётся по принятым сканам записи.
func (s *RunService) ImportRun(ctx context.Context, shared *SharedRun) (*entity.Run, error) {
	if shared == nil {
		return nil, fmt.Errorf("%w: empty shared run", apperrors.ErrValidation)
	}
	if err := shared.Validate(); err != nil {
		return nil, err
	}

	run := shared.ToRun()
	run.RunnerName = NormalizeRunnerName(run.RunnerName)

	course, err := s.courseRepo.GetByID(ctx, shared.CourseID)
	switch {
	case err == nil:
		if err := run.ValidateSplits(course.CheckpointCount()); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		if run.CourseName == "" {
			run.CourseName = course.Name
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if err := run.ValidateSplits(0); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		if err := s.createCourseFromShared(ctx, shared); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.runRepo.Append(ctx, shared.CourseID, run); err != nil {
		return nil, err
	}
	s.board.Invalidate(ctx, shared.CourseID)
	s.metrics.RunStored(run.Source)
	log.Printf("[RunService] Импортирован забег %s (%s) для трассы %s", run.ID, run.RunnerName, run.CourseID)
	return run, nil
}

// ImportLink разбирает ссылку и импортирует забег
func (s *RunService) ImportLink(ctx context.Context, link string) (*entity.Run, error) {
	shared, err := s.share.DecodeLink(link)
	if err != nil {
		return nil, err
	}
	return s.ImportRun(ctx, shared)
}

// ShareLink возвращает ссылку для переноса забега на другое устройство
func (s *RunService) ShareLink(ctx context.Context, id string) (string, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.share.EncodeLink(run)
}

func (s *RunService) createCourseFromShared(ctx context.Context, shared *SharedRun) error {
	entries := shared.CourseEntries()
	if len(entries) == 0 {
		// по неполным сканам трассу не восстановить, забег хранится сам по себе
		return nil
	}
	name := shared.CourseName
	if name == "" {
		name = "Imported course"
	}
	course := &entity.Course{ID: shared.CourseID, Name: name, Entries: entries}
	err := s.courseRepo.Create(ctx, course)
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("failed to create course %s from shared run: %w", shared.CourseID, err)
	}
	return nil
}
