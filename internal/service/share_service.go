package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	apperrors "github.com/yourusername/checkrun-api/internal/pkg/errors"
)

const (
	shareImportPath  = "/runs"
	shareImportParam = "import"
)

// SharedScan принятое сканирование в переносимой записи забега
type SharedScan struct {
	Data          string `json:"data"`
	TimeFromStart int64  `json:"timeFromStart"` // мс
	ExpectedIndex int    `json:"expectedIndex"`
}

// SharedRun переносимая запись забега, которую можно передать ссылкой или QR-кодом
type SharedRun struct {
	ID           string       `json:"id"`
	RunnerName   string       `json:"runnerName"`
	CourseID     string       `json:"courseId"`
	CourseName   string       `json:"courseName"`
	FinalTime    int64        `json:"finalTime"` // мс
	CorrectScans []SharedScan `json:"correctScans"`
	CompletedAt  int64        `json:"completedAt"` // unix мс
}

// maxSharedIDLen ограничение длины ID в хранилище
const maxSharedIDLen = 36

// Validate проверяет обязательные поля и инварианты сплитов
func (s *SharedRun) Validate() error {
	var missing []string
	if strings.TrimSpace(s.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(s.CourseID) == "" {
		missing = append(missing, "courseId")
	}
	if strings.TrimSpace(s.RunnerName) == "" {
		missing = append(missing, "runnerName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", apperrors.ErrValidation, strings.Join(missing, ", "))
	}
	if len(s.ID) > maxSharedIDLen || len(s.CourseID) > maxSharedIDLen {
		return fmt.Errorf("%w: id and courseId must be at most %d characters", apperrors.ErrValidation, maxSharedIDLen)
	}
	if s.FinalTime < 0 {
		return fmt.Errorf("%w: negative final time", apperrors.ErrValidation)
	}
	return nil
}

// ToRun переводит запись в сохраняемый забег
func (s *SharedRun) ToRun() *entity.Run {
	run := &entity.Run{
		ID:          s.ID,
		CourseID:    s.CourseID,
		CourseName:  s.CourseName,
		RunnerName:  s.RunnerName,
		TotalMs:     s.FinalTime,
		Source:      entity.RunSourceImport,
		CompletedAt: time.UnixMilli(s.CompletedAt).UTC(),
		Splits: lo.Map(s.CorrectScans, func(sc SharedScan, _ int) entity.RunSplit {
			return entity.RunSplit{
				RunID:           s.ID,
				CheckpointIndex: sc.ExpectedIndex,
				Payload:         sc.Data,
				ElapsedMs:       sc.TimeFromStart,
			}
		}),
	}
	run.SortSplits()
	return run
}

// CourseEntries восстанавливает список контрольных точек по принятым сканам.
// Трасса восстанавливается только если индексы покрывают 0..N-1 без пропусков
// и повторов, иначе возвращается nil.
func (s *SharedRun) CourseEntries() []string {
	scans := append([]SharedScan(nil), s.CorrectScans...)
	sort.SliceStable(scans, func(i, j int) bool { return scans[i].ExpectedIndex < scans[j].ExpectedIndex })
	for i, sc := range scans {
		if sc.ExpectedIndex != i {
			return nil
		}
	}
	return lo.Map(scans, func(sc SharedScan, _ int) string { return sc.Data })
}

// SharedRunFromRun собирает переносимую запись из сохранённого забега
func SharedRunFromRun(run *entity.Run) *SharedRun {
	return &SharedRun{
		ID:         run.ID,
		RunnerName: run.RunnerName,
		CourseID:   run.CourseID,
		CourseName: run.CourseName,
		FinalTime:  run.TotalMs,
		CorrectScans: lo.Map(run.Splits, func(sp entity.RunSplit, _ int) SharedScan {
			return SharedScan{Data: sp.Payload, TimeFromStart: sp.ElapsedMs, ExpectedIndex: sp.CheckpointIndex}
		}),
		CompletedAt: run.CompletedAt.UnixMilli(),
	}
}

// ShareService кодирует и разбирает ссылки на забеги
type ShareService struct {
	baseURL string
}

// NewShareService создает сервис ссылок. baseURL - адрес фронтенда, например https://runs.example.org
func NewShareService(baseURL string) *ShareService {
	return &ShareService{baseURL: strings.TrimRight(baseURL, "/")}
}

// EncodeLink возвращает ссылку вида <base>/runs?import=<JSON>
func (s *ShareService) EncodeLink(run *entity.Run) (string, error) {
	data, err := json.Marshal(SharedRunFromRun(run))
	if err != nil {
		return "", fmt.Errorf("failed to encode shared run: %w", err)
	}
	q := url.Values{shareImportParam: []string{string(data)}}
	return s.baseURL + shareImportPath + "?" + q.Encode(), nil
}

// DecodeLink принимает ссылку, значение параметра import или сам JSON
func (s *ShareService) DecodeLink(link string) (*SharedRun, error) {
	payload := strings.TrimSpace(link)
	if payload == "" {
		return nil, ErrInvalidShareLink
	}

	if !strings.HasPrefix(payload, "{") {
		if u, err := url.Parse(payload); err == nil && u.RawQuery != "" {
			payload = u.Query().Get(shareImportParam)
		} else if unescaped, err := url.QueryUnescape(payload); err == nil {
			payload = unescaped
		}
	}
	if !strings.HasPrefix(strings.TrimSpace(payload), "{") {
		return nil, ErrInvalidShareLink
	}

	var shared SharedRun
	if err := json.Unmarshal([]byte(payload), &shared); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShareLink, err)
	}
	return &shared, nil
}
