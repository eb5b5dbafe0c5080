package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/domain/repository"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
	"github.com/yourusername/checkrun-api/internal/service/runtracker"
	ws "github.com/yourusername/checkrun-api/internal/websocket"
	"github.com/yourusername/checkrun-api/pkg/metrics"
)

const (
	defaultSessionIdleTTL = 2 * time.Hour
	defaultSweepInterval  = time.Minute
)

// SessionNotifier доставляет события сессии подключённым клиентам
type SessionNotifier interface {
	NotifySession(sessionID, eventType string, data interface{})
}

// RunMetrics учитывает сканы и сохранённые забеги
type RunMetrics interface {
	ScanProcessed(result string)
	RunStored(source string)
}

type noopRunMetrics struct{}

func (noopRunMetrics) ScanProcessed(string) {}
func (noopRunMetrics) RunStored(string)     {}

// SessionSnapshot состояние сессии забега на момент запроса
type SessionSnapshot struct {
	ID              string                 `json:"id"`
	CourseID        string                 `json:"course_id"`
	CourseName      string                 `json:"course_name"`
	RunnerName      string                 `json:"runner_name"`
	State           runtracker.State       `json:"state"`
	Cursor          int                    `json:"cursor"`
	CheckpointCount int                    `json:"checkpoint_count"`
	ExpectedPayload string                 `json:"expected_payload,omitempty"`
	Elapsed         time.Duration          `json:"elapsed"`
	StartedAt       time.Time              `json:"started_at"`
	Scans           []runtracker.ScanEvent `json:"scans"`
	RejectedCount   int                    `json:"rejected_count"`
	RunID           string                 `json:"run_id,omitempty"`
	// PendingRun выставлен, если забег завершён, но итог ещё не сохранён
	PendingRun bool `json:"pending_run,omitempty"`
}

// ScanOutcome результат доставки одного payload'а в сессию
type ScanOutcome struct {
	// Suppressed означает, что payload отброшен как повтор в окне антидребезга
	Suppressed bool                 `json:"suppressed"`
	Event      runtracker.ScanEvent `json:"event"`
	Run        *entity.Run          `json:"run,omitempty"`
	Snapshot   SessionSnapshot      `json:"session"`
}

// runSession одна активная сессия: трекер и антидребезг одного бегуна.
// mu сериализует доставку сканов, каждый payload обрабатывается до конца до следующего.
type runSession struct {
	mu         sync.Mutex
	id         string
	courseID   string
	courseName string
	runnerName string
	tracker    *runtracker.Tracker
	debouncer  *runtracker.Debouncer
	lastActive time.Time
	runID      string
	pendingRun *entity.Run
}

func (rs *runSession) snapshot() SessionSnapshot {
	expected, _ := rs.tracker.Expected()
	return SessionSnapshot{
		ID:              rs.id,
		CourseID:        rs.courseID,
		CourseName:      rs.courseName,
		RunnerName:      rs.runnerName,
		State:           rs.tracker.State(),
		Cursor:          rs.tracker.Cursor(),
		CheckpointCount: rs.tracker.Course().Len(),
		ExpectedPayload: expected,
		Elapsed:         rs.tracker.Elapsed(),
		StartedAt:       rs.tracker.StartedAt(),
		Scans:           rs.tracker.Scans(),
		RejectedCount:   rs.tracker.RejectedCount(),
		RunID:           rs.runID,
		PendingRun:      rs.pendingRun != nil,
	}
}

// RunSessionService держит активные забеги в памяти, по одному трекеру на сессию
type RunSessionService struct {
	courseRepo     repository.CourseRepository
	runRepo        repository.RunRepository
	board          BoardInvalidator
	metrics        RunMetrics
	debounceWindow time.Duration
	idleTTL        time.Duration

	// notifyMu отдельно от mu: notify вызывается под rs.mu
	notifyMu sync.RWMutex
	notifier SessionNotifier

	mu       sync.RWMutex
	sessions map[string]*runSession
	now      func() time.Time
}

// NewRunSessionService создает сервис сессий. notifier может быть nil.
func NewRunSessionService(
	courseRepo repository.CourseRepository,
	runRepo repository.RunRepository,
	board BoardInvalidator,
	notifier SessionNotifier,
	debounceWindow time.Duration,
	idleTTL time.Duration,
) *RunSessionService {
	if idleTTL <= 0 {
		idleTTL = defaultSessionIdleTTL
	}
	return &RunSessionService{
		courseRepo:     courseRepo,
		runRepo:        runRepo,
		board:          board,
		notifier:       notifier,
		metrics:        noopRunMetrics{},
		debounceWindow: debounceWindow,
		idleTTL:        idleTTL,
		sessions:       make(map[string]*runSession),
		now:            time.Now,
	}
}

// SetNotifier подключает доставку событий после создания сервиса (хаб WebSocket создаётся позже)
func (s *RunSessionService) SetNotifier(notifier SessionNotifier) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.notifier = notifier
}

// SetMetrics подключает учёт сканов
func (s *RunSessionService) SetMetrics(m RunMetrics) {
	if m != nil {
		s.metrics = m
	}
}

func (s *RunSessionService) notify(sessionID, eventType string, data interface{}) {
	s.notifyMu.RLock()
	notifier := s.notifier
	s.notifyMu.RUnlock()
	if notifier != nil {
		notifier.NotifySession(sessionID, eventType, data)
	}
}

// StartSession создает сессию по трассе и сразу запускает забег
func (s *RunSessionService) StartSession(ctx context.Context, courseID, runnerName string) (*SessionSnapshot, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: course %s", runtracker.ErrCourseNotLoaded, courseID)
		}
		return nil, err
	}
	if !course.IsLoaded() {
		return nil, fmt.Errorf("%w: course %s has no checkpoints", runtracker.ErrCourseNotLoaded, courseID)
	}

	runnerName = NormalizeRunnerName(runnerName)
	tracker := runtracker.NewTracker(course.Entries,
		runtracker.WithClock(func() time.Time { return s.now() }),
		runtracker.WithMetadata(runtracker.Metadata{
			RunnerName: runnerName,
			CourseID:   course.ID,
			CourseName: course.Name,
		}),
	)
	if err := tracker.Start(); err != nil {
		return nil, err
	}

	rs := &runSession{
		id:         uuid.New().String(),
		courseID:   course.ID,
		courseName: course.Name,
		runnerName: runnerName,
		tracker:    tracker,
		debouncer:  runtracker.NewDebouncer(s.debounceWindow),
		lastActive: s.now(),
	}

	s.mu.Lock()
	s.sessions[rs.id] = rs
	s.mu.Unlock()

	snap := rs.snapshot()
	log.Printf("[RunSessionService] Сессия %s: %s начал трассу %s (%d точек)", rs.id, runnerName, course.ID, snap.CheckpointCount)
	s.notify(rs.id, ws.RUN_STARTED, snap)
	return &snap, nil
}

func (s *RunSessionService) get(sessionID string) (*runSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return rs, nil
}

// GetSession возвращает снимок сессии
func (s *RunSessionService) GetSession(sessionID string) (*SessionSnapshot, error) {
	rs, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	snap := rs.snapshot()
	return &snap, nil
}

// SubmitScan доставляет payload в трекер сессии. При debounce повтор того же payload'а
// внутри окна отбрасывается без обращения к трекеру. На завершении забега итог
// сохраняется ровно один раз. Если сохранить не удалось, итог остаётся в сессии
// до PersistPending.
func (s *RunSessionService) SubmitScan(ctx context.Context, sessionID, payload string, debounce bool) (*ScanOutcome, error) {
	rs, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := s.now()
	rs.lastActive = now

	if debounce && !rs.debouncer.Allow(payload, now) {
		s.metrics.ScanProcessed(metrics.ScanSuppressed)
		return &ScanOutcome{Suppressed: true, Snapshot: rs.snapshot()}, nil
	}

	event, result, err := rs.tracker.SubmitScan(payload)
	if err != nil {
		return nil, err
	}

	if event.Accepted {
		s.metrics.ScanProcessed(metrics.ScanAccepted)
	} else {
		s.metrics.ScanProcessed(metrics.ScanRejected)
	}

	outcome := &ScanOutcome{Event: event}
	if result != nil {
		rs.pendingRun = RunFromResult(result, rs.tracker.RejectedCount(), entity.RunSourceLocal)
		run, err := s.storePendingLocked(ctx, rs)
		if err != nil {
			snap := rs.snapshot()
			s.notify(rs.id, ws.SCAN_RESULT, &ScanOutcome{Event: event, Snapshot: snap})
			return nil, err
		}
		outcome.Run = run
		log.Printf("[RunSessionService] Сессия %s: забег %s завершён за %dms", rs.id, run.ID, run.TotalMs)
	}
	outcome.Snapshot = rs.snapshot()

	s.notify(rs.id, ws.SCAN_RESULT, outcome)
	if outcome.Run != nil {
		s.notify(rs.id, ws.RUN_COMPLETED, outcome.Run)
	}
	return outcome, nil
}

// storePendingLocked сохраняет rs.pendingRun. Вызывается под rs.mu.
func (s *RunSessionService) storePendingLocked(ctx context.Context, rs *runSession) (*entity.Run, error) {
	run := rs.pendingRun
	if err := s.runRepo.Append(ctx, rs.courseID, run); err != nil {
		log.Printf("[RunSessionService] Сессия %s: ошибка сохранения забега %s: %v", rs.id, run.ID, err)
		return nil, fmt.Errorf("failed to store completed run: %w", err)
	}
	rs.pendingRun = nil
	rs.runID = run.ID
	s.metrics.RunStored(run.Source)
	s.board.Invalidate(ctx, rs.courseID)
	return run, nil
}

// PersistPending повторяет сохранение завершённого забега после ошибки хранилища.
// Уже сохранённый забег повторно не пишется.
func (s *RunSessionService) PersistPending(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	rs, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.lastActive = s.now()
	if rs.pendingRun == nil {
		if rs.runID == "" {
			return nil, fmt.Errorf("%w: session %s has no finished run", runtracker.ErrInvalidState, rs.id)
		}
		snap := rs.snapshot()
		return &snap, nil
	}

	run, err := s.storePendingLocked(ctx, rs)
	if err != nil {
		return nil, err
	}
	log.Printf("[RunSessionService] Сессия %s: забег %s сохранён повторно", rs.id, run.ID)

	snap := rs.snapshot()
	s.notify(rs.id, ws.RUN_COMPLETED, run)
	return &snap, nil
}

// StopSession прерывает забег без сохранения результата
func (s *RunSessionService) StopSession(sessionID string) (*SessionSnapshot, error) {
	rs, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := rs.tracker.Stop(); err != nil {
		return nil, err
	}
	rs.lastActive = s.now()
	rs.debouncer.Reset()

	snap := rs.snapshot()
	s.notify(rs.id, ws.RUN_STOPPED, snap)
	return &snap, nil
}

// RestartSession запускает забег заново по той же трассе. Несохранённый итог
// предыдущего забега сначала сохраняется, при ошибке рестарт не выполняется.
func (s *RunSessionService) RestartSession(ctx context.Context, sessionID string) (*SessionSnapshot, error) {
	rs, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.tracker.State() == runtracker.StateRunning {
		return nil, runtracker.ErrInvalidState
	}
	// несохранённый итог не теряем: сначала пишем его
	if rs.pendingRun != nil {
		run, err := s.storePendingLocked(ctx, rs)
		if err != nil {
			return nil, err
		}
		s.notify(rs.id, ws.RUN_COMPLETED, run)
	}

	if err := rs.tracker.Start(); err != nil {
		return nil, err
	}
	rs.lastActive = s.now()
	rs.runID = ""
	rs.debouncer.Reset()

	snap := rs.snapshot()
	s.notify(rs.id, ws.RUN_STARTED, snap)
	return &snap, nil
}

// ActiveSessions возвращает количество сессий в памяти
func (s *RunSessionService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepIdle удаляет сессии, неактивные дольше idleTTL. Возвращает количество удалённых.
func (s *RunSessionService) SweepIdle() int {
	cutoff := s.now().Add(-s.idleTTL)

	// rs.mu не берётся под s.mu: сессия может держать rs.mu во время записи в хранилище
	s.mu.RLock()
	candidates := make(map[string]*runSession, len(s.sessions))
	for id, rs := range s.sessions {
		candidates[id] = rs
	}
	s.mu.RUnlock()

	idle := make([]string, 0)
	for id, rs := range candidates {
		rs.mu.Lock()
		// сессию с несохранённым итогом не удаляем
		if rs.lastActive.Before(cutoff) && rs.pendingRun == nil {
			idle = append(idle, id)
		}
		rs.mu.Unlock()
	}
	if len(idle) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range idle {
		if s.sessions[id] == candidates[id] {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper периодически удаляет неактивные сессии до отмены контекста
func (s *RunSessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[RunSessionService] Запуск очистки неактивных сессий (каждые %s, TTL %s)", interval, s.idleTTL)
	for {
		select {
		case <-ticker.C:
			if n := s.SweepIdle(); n > 0 {
				log.Printf("[RunSessionService] Удалено неактивных сессий: %d", n)
			}
		case <-ctx.Done():
			log.Println("[RunSessionService] Завершение работы горутины очистки сессий")
			return
		}
	}
}
