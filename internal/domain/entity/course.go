package entity

import (
	"strconv"
	"time"

	"github.com/lib/pq"
)

// Course представляет трассу: упорядоченный список QR-кодов контрольных точек
type Course struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Entries   pq.StringArray `gorm:"type:text[];not null" json:"entries"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Course) TableName() string {
	return "courses"
}

// CheckpointCount возвращает количество контрольных точек
func (c *Course) CheckpointCount() int {
	return len(c.Entries)
}

// IsLoaded проверяет, что трасса пригодна для забега
func (c *Course) IsLoaded() bool {
	return c != nil && len(c.Entries) > 0
}

// CheckpointLabel возвращает подпись точки: Start, Finish или Control-N
func (c *Course) CheckpointLabel(index int) string {
	return CheckpointLabel(index, len(c.Entries))
}

// CheckpointLabel подпись точки index на трассе из count точек
func CheckpointLabel(index, count int) string {
	switch {
	case index == 0:
		return "Start"
	case index == count-1:
		return "Finish"
	default:
		return "Control-" + strconv.Itoa(index)
	}
}
