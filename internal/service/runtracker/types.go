package runtracker

import (
	"fmt"
	"time"

	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

// Ошибки трекера оборачивают общие ошибки приложения, чтобы errors.Is работал на всех слоях.
var (
	// ErrCourseNotLoaded возвращается Start, если трасса пуста или не задана.
	ErrCourseNotLoaded = fmt.Errorf("runtracker: %w", apperrors.ErrCourseNotLoaded)
	// ErrInvalidState возвращается, если операция вызвана не в том состоянии.
	ErrInvalidState = fmt.Errorf("runtracker: %w", apperrors.ErrInvalidState)
)

// State состояние забега
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

// String возвращает имя состояния для логов и JSON
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText позволяет сериализовать State как строку
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CourseDefinition упорядоченный список ожидаемых payload'ов контрольных точек.
// Идентификаторы не обязаны быть уникальными: сопоставление идёт по позиции.
type CourseDefinition []string

// Len возвращает количество контрольных точек
func (c CourseDefinition) Len() int {
	return len(c)
}

// ScanEvent одно распознанное сканирование во время активного забега.
// Создаётся на каждый payload, после создания не меняется.
type ScanEvent struct {
	Payload       string        `json:"payload"`
	ScannedAt     time.Time     `json:"scanned_at"`
	Elapsed       time.Duration `json:"elapsed"`
	Accepted      bool          `json:"accepted"`
	ExpectedIndex int           `json:"expected_index"` // позиция курсора в момент сканирования
}

// Split принятое сканирование, закрывающее контрольную точку Index
type Split struct {
	Index   int           `json:"index"`
	Payload string        `json:"payload"`
	Elapsed time.Duration `json:"elapsed"` // от старта забега
}

// Metadata описывает, кто и по какой трассе бежит. Копируется в Result.
type Metadata struct {
	RunnerName string
	CourseID   string
	CourseName string
}

// Result итог завершённого забега (RunResult).
// Создаётся один раз в момент принятия последней контрольной точки.
type Result struct {
	ID           string        `json:"id"`
	RunnerName   string        `json:"runner_name"`
	CourseID     string        `json:"course_id"`
	CourseName   string        `json:"course_name"`
	TotalElapsed time.Duration `json:"total_elapsed"`
	Splits       []Split       `json:"splits"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// SplitAt возвращает сплит для контрольной точки index, если он есть
func (r *Result) SplitAt(index int) (Split, bool) {
	for _, s := range r.Splits {
		if s.Index == index {
			return s, true
		}
	}
	return Split{}, false
}
