package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/domain/repository"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
	"github.com/yourusername/checkrun-api/internal/service/runtracker"
)

const (
	leaderboardCacheKeyPrefix = "leaderboard:"
	defaultLeaderboardTTL     = 5 * time.Minute
)

// BoardInvalidator сбрасывает кешированную таблицу результатов трассы
type BoardInvalidator interface {
	Invalidate(ctx context.Context, courseID string)
}

// Leaderboard таблица результатов трассы с подписями контрольных точек
type Leaderboard struct {
	CourseID   string           `json:"course_id"`
	CourseName string           `json:"course_name"`
	Labels     []string         `json:"labels"`
	Board      runtracker.Board `json:"board"`
}

// LeaderboardService строит таблицы результатов и кеширует их в Redis
type LeaderboardService struct {
	courseRepo repository.CourseRepository
	runRepo    repository.RunRepository
	cacheRepo  repository.CacheRepository
	cacheTTL   time.Duration
}

// NewLeaderboardService создает сервис таблиц результатов. cacheRepo может быть nil.
func NewLeaderboardService(
	courseRepo repository.CourseRepository,
	runRepo repository.RunRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *LeaderboardService {
	if cacheTTL <= 0 {
		cacheTTL = defaultLeaderboardTTL
	}
	return &LeaderboardService{
		courseRepo: courseRepo,
		runRepo:    runRepo,
		cacheRepo:  cacheRepo,
		cacheTTL:   cacheTTL,
	}
}

func leaderboardCacheKey(courseID string) string {
	return leaderboardCacheKeyPrefix + courseID
}

// GetBoard возвращает таблицу результатов трассы, сначала пытаясь взять её из кеша
func (s *LeaderboardService) GetBoard(ctx context.Context, courseID string) (*Leaderboard, error) {
	if s.cacheRepo != nil {
		var cached Leaderboard
		err := s.cacheRepo.GetJSON(leaderboardCacheKey(courseID), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[LeaderboardService] Ошибка чтения кеша для трассы %s: %v", courseID, err)
		}
	}

	lb, _, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(leaderboardCacheKey(courseID), lb, s.cacheTTL); err != nil {
			log.Printf("[LeaderboardService] Ошибка записи кеша для трассы %s: %v", courseID, err)
		}
	}
	return lb, nil
}

// Rank ранжирует забеги трассы на одной контрольной точке по выбранной метрике
func (s *LeaderboardService) Rank(ctx context.Context, courseID string, checkpoint int, metric runtracker.Metric) (map[string]runtracker.RankClass, error) {
	lb, results, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if checkpoint < 0 || checkpoint >= lb.Board.CheckpointCount {
		return nil, fmt.Errorf("%w: checkpoint %d out of range [0, %d)", apperrors.ErrValidation, checkpoint, lb.Board.CheckpointCount)
	}
	return runtracker.Rank(results, checkpoint, metric), nil
}

// Invalidate удаляет таблицу трассы из кеша. Ошибки только логируются.
func (s *LeaderboardService) Invalidate(ctx context.Context, courseID string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(leaderboardCacheKey(courseID)); err != nil {
		log.Printf("[LeaderboardService] Ошибка инвалидации кеша для трассы %s: %v", courseID, err)
	}
}

// load собирает таблицу из хранилища. Если трассы нет локально (только импортированные забеги),
// длина трассы берётся по максимальному индексу сплита.
func (s *LeaderboardService) load(ctx context.Context, courseID string) (*Leaderboard, []*runtracker.Result, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to load course %s: %w", courseID, err)
	}

	runs, err := s.runRepo.GetByCourse(ctx, courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load runs for course %s: %w", courseID, err)
	}
	if course == nil && len(runs) == 0 {
		return nil, nil, apperrors.ErrNotFound
	}

	lb := &Leaderboard{CourseID: courseID}
	var count int
	if course != nil {
		lb.CourseName = course.Name
		count = course.CheckpointCount()
	} else {
		lb.CourseName = runs[0].CourseName
		count = lo.Max(lo.FlatMap(runs, func(r entity.Run, _ int) []int {
			return lo.Map(r.Splits, func(sp entity.RunSplit, _ int) int { return sp.CheckpointIndex + 1 })
		}))
	}

	lb.Labels = lo.Times(count, func(i int) string { return entity.CheckpointLabel(i, count) })
	results := ResultsFromRuns(runs)
	lb.Board = runtracker.BuildBoard(results, count)
	return lb, results, nil
}
