package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/middleware"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
	"github.com/yourusername/checkrun-api/internal/service"
	"github.com/yourusername/checkrun-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// In-memory репозитории
// ============================================================================

type memCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*entity.Course
}

func (r *memCourseRepo) Create(_ context.Context, course *entity.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[course.ID]; ok {
		return apperrors.ErrConflict
	}
	cp := *course
	r.courses[course.ID] = &cp
	return nil
}

func (r *memCourseRepo) GetByID(_ context.Context, id string) (*entity.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCourseRepo) List(_ context.Context) ([]entity.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (r *memCourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs map[string]*entity.Run
}

func (r *memRunRepo) Append(_ context.Context, courseID string, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return apperrors.ErrConflict
	}
	cp := *run
	cp.CourseID = courseID
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRunRepo) GetByCourse(_ context.Context, courseID string) ([]entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Run
	for _, run := range r.runs {
		if run.CourseID == courseID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalMs < out[j].TotalMs })
	return out, nil
}

func (r *memRunRepo) GetByID(_ context.Context, id string) (*entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *memRunRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.runs, id)
	return nil
}

func (r *memRunRepo) DeleteByCourse(_ context.Context, courseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, run := range r.runs {
		if run.CourseID == courseID {
			delete(r.runs, id)
		}
	}
	return nil
}

// ============================================================================
// Тестовое окружение
// ============================================================================

type testEnv struct {
	router     *gin.Engine
	jwtService *auth.JWTService
	courses    *memCourseRepo
	runs       *memRunRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	courses := &memCourseRepo{courses: make(map[string]*entity.Course)}
	runs := &memRunRepo{runs: make(map[string]*entity.Run)}

	jwtService, err := auth.NewJWTService("handler-test-secret-key", 1, 60)
	require.NoError(t, err)

	board := service.NewLeaderboardService(courses, runs, nil, time.Minute)
	share := service.NewShareService("https://checkrun.example")
	courseService := service.NewCourseService(courses, runs, board)
	runService := service.NewRunService(courses, runs, board, share)
	sessionService := service.NewRunSessionService(courses, runs, board, nil, 0, time.Hour)

	hash, err := bcryptHash("letmein")
	require.NoError(t, err)
	adminAuth := service.NewAdminAuthService(hash, jwtService)

	routes := &Routes{
		Auth:        NewAuthHandler(adminAuth),
		Course:      NewCourseHandler(courseService, runService),
		Run:         NewRunHandler(runService),
		Session:     NewSessionHandler(sessionService, jwtService),
		Leaderboard: NewLeaderboardHandler(board),
		Health: NewHealthHandler(map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		}, nil, sessionService),
		AdminAuth: middleware.NewAuthMiddleware(jwtService),
	}
	router := gin.New()
	routes.Register(router)

	return &testEnv{router: router, jwtService: jwtService, courses: courses, runs: runs}
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (e *testEnv) createCourse(t *testing.T, entries ...string) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/courses", gin.H{"name": "Park", "entries": entries}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var course struct {
		ID string `json:"id"`
	}
	decode(t, rec, &course)
	return course.ID
}

// ============================================================================
// Тесты
// ============================================================================

func TestCourseHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	id := env.createCourse(t, "A", " B ", "", "C")

	rec := env.do(http.MethodGet, "/api/courses/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var course struct {
		Entries []string `json:"entries"`
		Labels  []string `json:"labels"`
	}
	decode(t, rec, &course)
	assert.Equal(t, []string{"A", "B", "C"}, course.Entries)
	assert.Equal(t, []string{"Start", "Control-1", "Finish"}, course.Labels)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/courses/missing", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/courses", gin.H{"entries": []string{}}, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/courses", gin.H{"entries": []string{"  "}}, "").Code)
}

func TestSessionHandler_FullRunThroughREST(t *testing.T) {
	env := newTestEnv(t)
	courseID := env.createCourse(t, "A", "B", "C")

	rec := env.do(http.MethodPost, "/api/sessions", gin.H{"course_id": courseID, "runner_name": "Ann"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started struct {
		Session struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"session"`
		WSTicket string `json:"ws_ticket"`
	}
	decode(t, rec, &started)
	assert.Equal(t, "running", started.Session.State)
	require.NotEmpty(t, started.WSTicket)

	claims, err := env.jwtService.ParseToken(started.WSTicket, auth.UsageWSTicket)
	require.NoError(t, err)
	assert.Equal(t, started.Session.ID, claims.SessionID)

	scan := func(payload string) *httptest.ResponseRecorder {
		off := false
		return env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/scans", gin.H{"payload": payload, "debounce": &off}, "")
	}

	// неверный скан отклоняется, курсор не двигается
	rec = scan("B")
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome struct {
		Event struct {
			Accepted bool `json:"accepted"`
		} `json:"event"`
		Run *struct {
			ID string `json:"id"`
		} `json:"run"`
	}
	decode(t, rec, &outcome)
	assert.False(t, outcome.Event.Accepted)

	for _, p := range []string{"A", "B", "C"} {
		rec = scan(p)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	decode(t, rec, &outcome)
	require.NotNil(t, outcome.Run)

	// скан после финиша недопустим
	assert.Equal(t, http.StatusConflict, scan("A").Code)

	rec = env.do(http.MethodGet, "/api/courses/"+courseID+"/runs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []struct {
		ID            string `json:"id"`
		RejectedScans int    `json:"rejected_scans"`
		Splits        []struct {
			Label string `json:"label"`
		} `json:"splits"`
	}
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, outcome.Run.ID, runs[0].ID)
	assert.Equal(t, 1, runs[0].RejectedScans)
	require.Len(t, runs[0].Splits, 3)
	assert.Equal(t, "Finish", runs[0].Splits[2].Label)

	// повторное сохранение уже записанного забега ничего не дублирует
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/persist", nil, "").Code)
	stored, err := env.runs.GetByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// перезапуск и остановка
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/start", nil, "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/stop", nil, "").Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/stop", nil, "").Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/sessions/"+started.Session.ID+"/persist", nil, "").Code, "нет завершённого забега")
}

func TestSessionHandler_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/sessions", gin.H{"course_id": "unknown"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "трасса не загружена")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/sessions/not-a-uuid", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/sessions/6f9619ff-8b86-d011-b42d-00cf4fc964ff", nil, "").Code)
}

func TestLeaderboardHandler_BoardRankAndExport(t *testing.T) {
	env := newTestEnv(t)
	courseID := env.createCourse(t, "A", "B")

	require.NoError(t, env.runs.Append(context.Background(), courseID, &entity.Run{
		ID: "fast", RunnerName: "=cmd", TotalMs: 2000,
		Splits: []entity.RunSplit{{CheckpointIndex: 0, ElapsedMs: 0}, {CheckpointIndex: 1, ElapsedMs: 2000}},
	}))
	require.NoError(t, env.runs.Append(context.Background(), courseID, &entity.Run{
		ID: "slow", RunnerName: "Bob", TotalMs: 5000,
		Splits: []entity.RunSplit{{CheckpointIndex: 0, ElapsedMs: 0}, {CheckpointIndex: 1, ElapsedMs: 5000}},
	}))

	rec := env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lb service.Leaderboard
	decode(t, rec, &lb)
	require.Len(t, lb.Board.Rows, 2)
	assert.Equal(t, "fast", lb.Board.Rows[0].RunID)

	rec = env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/rank?checkpoint=1&metric=leg", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ranked struct {
		Ranks map[string]string `json:"ranks"`
	}
	decode(t, rec, &ranked)
	assert.Equal(t, "fastest", ranked.Ranks["fast"])
	assert.Equal(t, "second", ranked.Ranks["slow"])

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/rank?checkpoint=x", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/rank?checkpoint=1&metric=speed", nil, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/rank?checkpoint=7", nil, "").Code)

	rec = env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/export?format=csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Place,Runner,Total,Start,Finish")
	assert.Contains(t, body, "1,'=cmd,00:02.00,00:00.00,00:02.00")
	assert.Contains(t, body, "2,Bob,00:05.00")

	rec = env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/export?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx это zip-архив")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/courses/"+courseID+"/leaderboard/export?format=pdf", nil, "").Code)
}

func TestRunHandler_ShareAndImport(t *testing.T) {
	env := newTestEnv(t)
	courseID := env.createCourse(t, "A", "B")
	require.NoError(t, env.runs.Append(context.Background(), courseID, &entity.Run{
		ID: "r1", CourseName: "Park", RunnerName: "Ann", TotalMs: 3000, CompletedAt: time.Now(),
		Splits: []entity.RunSplit{{CheckpointIndex: 0, Payload: "A"}, {CheckpointIndex: 1, Payload: "B", ElapsedMs: 3000}},
	}))

	rec := env.do(http.MethodGet, "/api/runs/r1/share", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var shared struct {
		URL string `json:"url"`
	}
	decode(t, rec, &shared)
	assert.Contains(t, shared.URL, "https://checkrun.example/runs?import=")

	// на этом же устройстве забег уже есть
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/runs/import", gin.H{"link": shared.URL}, "").Code)

	// на «другом устройстве» трасса создаётся из сканов
	other := newTestEnv(t)
	rec = other.do(http.MethodPost, "/api/runs/import", gin.H{"link": shared.URL}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	course, err := other.courses.GetByID(context.Background(), courseID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, []string(course.Entries))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/runs/import", gin.H{}, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/runs/import", gin.H{"link": "not json"}, "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/runs/import", gin.H{"run": gin.H{"id": "x"}}, "").Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	courseID := env.createCourse(t, "A")
	require.NoError(t, env.runs.Append(context.Background(), courseID, &entity.Run{ID: "r1", TotalMs: 1}))

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodDelete, "/api/runs/r1", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/auth/login", gin.H{"password": "wrong"}, "").Code)

	rec := env.do(http.MethodPost, "/api/auth/login", gin.H{"password": "letmein"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var token service.AdminToken
	decode(t, rec, &token)
	require.NotEmpty(t, token.AccessToken)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/runs/r1", nil, token.AccessToken).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/runs/r1", nil, "").Code)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/courses/"+courseID, nil, token.AccessToken).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/courses/"+courseID, nil, "").Code)
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, rec.Body.String(), `"active_sessions":0`)

	h := NewHealthHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return assert.AnError },
	}, nil, nil)
	router := gin.New()
	router.GET("/health", h.Health)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
