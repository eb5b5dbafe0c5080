package service

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/service/runtracker"
)

// DefaultRunnerName имя бегуна, если оно не указано
const DefaultRunnerName = "Anonymous"

// RunFromResult переводит итог забега трекера в сохраняемую запись
func RunFromResult(res *runtracker.Result, rejected int, source string) *entity.Run {
	startedAt := res.StartedAt
	return &entity.Run{
		ID:            res.ID,
		CourseID:      res.CourseID,
		CourseName:    res.CourseName,
		RunnerName:    res.RunnerName,
		TotalMs:       res.TotalElapsed.Milliseconds(),
		RejectedScans: rejected,
		Source:        source,
		StartedAt:     &startedAt,
		CompletedAt:   res.CompletedAt,
		Splits: lo.Map(res.Splits, func(s runtracker.Split, _ int) entity.RunSplit {
			return entity.RunSplit{
				RunID:           res.ID,
				CheckpointIndex: s.Index,
				Payload:         s.Payload,
				ElapsedMs:       s.Elapsed.Milliseconds(),
			}
		}),
	}
}

// ResultFromRun восстанавливает итог забега для ранжирования
func ResultFromRun(run *entity.Run) *runtracker.Result {
	res := &runtracker.Result{
		ID:           run.ID,
		RunnerName:   run.RunnerName,
		CourseID:     run.CourseID,
		CourseName:   run.CourseName,
		TotalElapsed: time.Duration(run.TotalMs) * time.Millisecond,
		CompletedAt:  run.CompletedAt,
		Splits: lo.Map(run.Splits, func(s entity.RunSplit, _ int) runtracker.Split {
			return runtracker.Split{
				Index:   s.CheckpointIndex,
				Payload: s.Payload,
				Elapsed: time.Duration(s.ElapsedMs) * time.Millisecond,
			}
		}),
	}
	if run.StartedAt != nil {
		res.StartedAt = *run.StartedAt
	}
	return res
}

// ResultsFromRuns переводит коллекцию забегов трассы
func ResultsFromRuns(runs []entity.Run) []*runtracker.Result {
	return lo.Map(runs, func(r entity.Run, _ int) *runtracker.Result {
		return ResultFromRun(&r)
	})
}

const maxRunnerNameLength = 50

// NormalizeRunnerName обрезает пробелы, подставляет имя по умолчанию и ограничивает длину
func NormalizeRunnerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultRunnerName
	}
	if runes := []rune(name); len(runes) > maxRunnerNameLength {
		name = string(runes[:maxRunnerNameLength])
	}
	return name
}
