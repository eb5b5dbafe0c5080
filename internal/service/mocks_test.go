package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockCourseRepo реализует repository.CourseRepository
type MockCourseRepo struct {
	mock.Mock
}

func (m *MockCourseRepo) Create(ctx context.Context, course *entity.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *MockCourseRepo) GetByID(ctx context.Context, id string) (*entity.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Course), args.Error(1)
}

func (m *MockCourseRepo) List(ctx context.Context) ([]entity.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Course), args.Error(1)
}

func (m *MockCourseRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRunRepo реализует repository.RunRepository
type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) Append(ctx context.Context, courseID string, run *entity.Run) error {
	args := m.Called(ctx, courseID, run)
	return args.Error(0)
}

func (m *MockRunRepo) GetByCourse(ctx context.Context, courseID string) ([]entity.Run, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Run), args.Error(1)
}

func (m *MockRunRepo) GetByID(ctx context.Context, id string) (*entity.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Run), args.Error(1)
}

func (m *MockRunRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRunRepo) DeleteByCourse(ctx context.Context, courseID string) error {
	args := m.Called(ctx, courseID)
	return args.Error(0)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(keys ...string) error {
	args := m.Called(keys)
	return args.Error(0)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

// MockBoardInvalidator реализует BoardInvalidator
type MockBoardInvalidator struct {
	mock.Mock
}

func (m *MockBoardInvalidator) Invalidate(ctx context.Context, courseID string) {
	m.Called(ctx, courseID)
}

// recordingNotifier запоминает отправленные события
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifySession(sessionID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// recordingMetrics считает вызовы RunMetrics
type recordingMetrics struct {
	mu     sync.Mutex
	scans  map[string]int
	stored map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{scans: map[string]int{}, stored: map[string]int{}}
}

func (m *recordingMetrics) ScanProcessed(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[result]++
}

func (m *recordingMetrics) RunStored(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[source]++
}
