package entity

import (
	"fmt"
	"sort"
	"time"
)

// Источники забега
const (
	RunSourceLocal  = "local"
	RunSourceImport = "import"
)

// Run представляет завершённый забег (RunResult), хранится в коллекции трассы
type Run struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	CourseID      string     `gorm:"size:36;not null;index" json:"course_id"`
	CourseName    string     `gorm:"size:100;not null;default:''" json:"course_name"`
	RunnerName    string     `gorm:"size:50;not null" json:"runner_name"`
	TotalMs       int64      `gorm:"not null;index:idx_runs_course_total" json:"total_ms"`
	RejectedScans int        `gorm:"not null;default:0" json:"rejected_scans"`
	Source        string     `gorm:"size:20;not null;default:'local'" json:"source"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   time.Time  `gorm:"not null" json:"completed_at"`
	Splits        []RunSplit `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"splits"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Run) TableName() string {
	return "runs"
}

// RunSplit принятое сканирование контрольной точки внутри забега
type RunSplit struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	RunID           string `gorm:"size:36;not null;uniqueIndex:idx_run_checkpoint" json:"-"`
	CheckpointIndex int    `gorm:"not null;uniqueIndex:idx_run_checkpoint" json:"checkpoint_index"`
	Payload         string `gorm:"not null;default:''" json:"payload"`
	ElapsedMs       int64  `gorm:"not null" json:"elapsed_ms"`
}

// TableName определяет имя таблицы для GORM
func (RunSplit) TableName() string {
	return "run_splits"
}

// SortSplits упорядочивает сплиты по индексу контрольной точки
func (r *Run) SortSplits() {
	sort.Slice(r.Splits, func(i, j int) bool {
		return r.Splits[i].CheckpointIndex < r.Splits[j].CheckpointIndex
	})
}

// ValidateSplits проверяет инвариант: индексы уникальны и лежат в [0, checkpointCount).
// checkpointCount <= 0 означает, что длина трассы неизвестна и проверяется только нижняя граница.
func (r *Run) ValidateSplits(checkpointCount int) error {
	seen := make(map[int]struct{}, len(r.Splits))
	for _, s := range r.Splits {
		if s.CheckpointIndex < 0 {
			return fmt.Errorf("negative checkpoint index %d", s.CheckpointIndex)
		}
		if checkpointCount > 0 && s.CheckpointIndex >= checkpointCount {
			return fmt.Errorf("checkpoint index %d out of range [0, %d)", s.CheckpointIndex, checkpointCount)
		}
		if _, dup := seen[s.CheckpointIndex]; dup {
			return fmt.Errorf("duplicate checkpoint index %d", s.CheckpointIndex)
		}
		if s.ElapsedMs < 0 {
			return fmt.Errorf("negative elapsed time at checkpoint %d", s.CheckpointIndex)
		}
		seen[s.CheckpointIndex] = struct{}{}
	}
	return nil
}

// IsComplete проверяет, что у забега есть сплит на каждой контрольной точке
func (r *Run) IsComplete(checkpointCount int) bool {
	if checkpointCount <= 0 || len(r.Splits) != checkpointCount {
		return false
	}
	return r.ValidateSplits(checkpointCount) == nil
}
