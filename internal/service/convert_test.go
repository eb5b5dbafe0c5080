package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
	"github.com/yourusername/checkrun-api/internal/service/runtracker"
)

func TestRunFromResult_AndBack(t *testing.T) {
	started := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	res := &runtracker.Result{
		ID:           "r1",
		RunnerName:   "Ana",
		CourseID:     "c1",
		CourseName:   "Loop",
		TotalElapsed: 12_345 * time.Millisecond,
		StartedAt:    started,
		CompletedAt:  started.Add(12_345 * time.Millisecond),
		Splits: []runtracker.Split{
			{Index: 0, Payload: "A", Elapsed: 0},
			{Index: 1, Payload: "B", Elapsed: 12_345 * time.Millisecond},
		},
	}

	run := RunFromResult(res, 3, entity.RunSourceLocal)
	assert.Equal(t, int64(12_345), run.TotalMs)
	assert.Equal(t, 3, run.RejectedScans)
	require.Len(t, run.Splits, 2)
	assert.Equal(t, "r1", run.Splits[1].RunID)
	assert.True(t, run.IsComplete(2))

	back := ResultFromRun(run)
	assert.Equal(t, res, back)
}

func TestNormalizeRunnerName(t *testing.T) {
	assert.Equal(t, DefaultRunnerName, NormalizeRunnerName("   "))
	assert.Equal(t, "Ana", NormalizeRunnerName(" Ana "))
	long := strings.Repeat("я", 80)
	assert.Len(t, []rune(NormalizeRunnerName(long)), 50)
}
