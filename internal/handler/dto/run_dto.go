package dto

import (
	"fmt"
	"time"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/service"
)

// CreateCourseRequest запрос на загрузку трассы
type CreateCourseRequest struct {
	Name    string   `json:"name" binding:"omitempty,max=100"`
	Entries []string `json:"entries" binding:"required,min=1"`
}

// StartSessionRequest запрос на начало забега
type StartSessionRequest struct {
	CourseID   string `json:"course_id" binding:"required"`
	RunnerName string `json:"runner_name" binding:"omitempty,max=200"`
}

// ScanRequest payload одного сканирования.
// Debounce по умолчанию включён, как у камеры сканера.
type ScanRequest struct {
	Payload  string `json:"payload" binding:"required"`
	Debounce *bool  `json:"debounce,omitempty"`
}

// DebounceEnabled возвращает значение флага антидребезга с учётом умолчания
func (r ScanRequest) DebounceEnabled() bool {
	return r.Debounce == nil || *r.Debounce
}

// ImportRunRequest импорт забега: либо ссылка, либо сама запись
type ImportRunRequest struct {
	Link string             `json:"link,omitempty"`
	Run  *service.SharedRun `json:"run,omitempty"`
}

// LoginRequest запрос на вход администратора
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// SplitResponse сплит забега
type SplitResponse struct {
	CheckpointIndex int    `json:"checkpoint_index"`
	Label           string `json:"label"`
	Payload         string `json:"payload"`
	ElapsedMs       int64  `json:"elapsed_ms"`
	Elapsed         string `json:"elapsed"`
}

// RunResponse забег в формате для ответа клиенту
type RunResponse struct {
	ID            string          `json:"id"`
	CourseID      string          `json:"course_id"`
	CourseName    string          `json:"course_name"`
	RunnerName    string          `json:"runner_name"`
	TotalMs       int64           `json:"total_ms"`
	Total         string          `json:"total"`
	RejectedScans int             `json:"rejected_scans"`
	Source        string          `json:"source"`
	CompletedAt   time.Time       `json:"completed_at"`
	Splits        []SplitResponse `json:"splits"`
}

// NewRunResponse создает DTO забега. checkpointCount нужен для подписей точек,
// при 0 используется количество сплитов.
func NewRunResponse(run *entity.Run, checkpointCount int) *RunResponse {
	if run == nil {
		return nil
	}
	if checkpointCount <= 0 {
		checkpointCount = len(run.Splits)
	}
	resp := &RunResponse{
		ID:            run.ID,
		CourseID:      run.CourseID,
		CourseName:    run.CourseName,
		RunnerName:    run.RunnerName,
		TotalMs:       run.TotalMs,
		Total:         FormatClock(time.Duration(run.TotalMs) * time.Millisecond),
		RejectedScans: run.RejectedScans,
		Source:        run.Source,
		CompletedAt:   run.CompletedAt,
		Splits:        make([]SplitResponse, 0, len(run.Splits)),
	}
	for _, s := range run.Splits {
		resp.Splits = append(resp.Splits, SplitResponse{
			CheckpointIndex: s.CheckpointIndex,
			Label:           entity.CheckpointLabel(s.CheckpointIndex, checkpointCount),
			Payload:         s.Payload,
			ElapsedMs:       s.ElapsedMs,
			Elapsed:         FormatClock(time.Duration(s.ElapsedMs) * time.Millisecond),
		})
	}
	return resp
}

// NewRunListResponse создает список DTO забегов
func NewRunListResponse(runs []entity.Run, checkpointCount int) []*RunResponse {
	out := make([]*RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, NewRunResponse(&runs[i], checkpointCount))
	}
	return out
}

// CourseResponse трасса с подписями точек
type CourseResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Entries         []string  `json:"entries"`
	Labels          []string  `json:"labels"`
	CheckpointCount int       `json:"checkpoint_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewCourseResponse создает DTO трассы
func NewCourseResponse(course *entity.Course) *CourseResponse {
	labels := make([]string, course.CheckpointCount())
	for i := range labels {
		labels[i] = course.CheckpointLabel(i)
	}
	return &CourseResponse{
		ID:              course.ID,
		Name:            course.Name,
		Entries:         course.Entries,
		Labels:          labels,
		CheckpointCount: course.CheckpointCount(),
		CreatedAt:       course.CreatedAt,
	}
}

// SessionResponse снимок сессии и тикет для WebSocket
type SessionResponse struct {
	Session  *service.SessionSnapshot `json:"session"`
	WSTicket string                   `json:"ws_ticket,omitempty"`
}

// FormatClock форматирует длительность как MM:SS.cc (сотые доли секунды).
// Минуты не ограничены 59.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d.Milliseconds() / 10
	minutes := cs / 6000
	seconds := (cs / 100) % 60
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, cs%100)
}
