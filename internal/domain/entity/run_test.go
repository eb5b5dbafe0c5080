package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_ValidateSplits_Valid(t *testing.T) {
	run := &Run{Splits: []RunSplit{
		{CheckpointIndex: 0, ElapsedMs: 1000},
		{CheckpointIndex: 1, ElapsedMs: 2500},
		{CheckpointIndex: 2, ElapsedMs: 4000},
	}}

	assert.NoError(t, run.ValidateSplits(3))
	assert.True(t, run.IsComplete(3))
}

func TestRun_ValidateSplits_Duplicate(t *testing.T) {
	run := &Run{Splits: []RunSplit{
		{CheckpointIndex: 0, ElapsedMs: 1000},
		{CheckpointIndex: 0, ElapsedMs: 2000},
	}}

	assert.Error(t, run.ValidateSplits(3), "повторяющийся индекс должен быть ошибкой")
	assert.False(t, run.IsComplete(2))
}

func TestRun_ValidateSplits_OutOfRange(t *testing.T) {
	run := &Run{Splits: []RunSplit{{CheckpointIndex: 5}}}

	assert.Error(t, run.ValidateSplits(3))
	// длина трассы неизвестна: проверяется только нижняя граница
	assert.NoError(t, run.ValidateSplits(0))

	neg := &Run{Splits: []RunSplit{{CheckpointIndex: -1}}}
	assert.Error(t, neg.ValidateSplits(0))
}

func TestRun_IsComplete_Partial(t *testing.T) {
	run := &Run{Splits: []RunSplit{{CheckpointIndex: 0}, {CheckpointIndex: 2}}}

	assert.NoError(t, run.ValidateSplits(3))
	assert.False(t, run.IsComplete(3), "без точки 1 забег неполный")
}

func TestRun_SortSplits(t *testing.T) {
	run := &Run{Splits: []RunSplit{{CheckpointIndex: 2}, {CheckpointIndex: 0}, {CheckpointIndex: 1}}}
	run.SortSplits()

	assert.Equal(t, 0, run.Splits[0].CheckpointIndex)
	assert.Equal(t, 1, run.Splits[1].CheckpointIndex)
	assert.Equal(t, 2, run.Splits[2].CheckpointIndex)
}

func TestCourse_CheckpointLabel(t *testing.T) {
	course := &Course{Entries: []string{"a", "b", "c", "d"}}

	assert.Equal(t, "Start", course.CheckpointLabel(0))
	assert.Equal(t, "Control-1", course.CheckpointLabel(1))
	assert.Equal(t, "Control-2", course.CheckpointLabel(2))
	assert.Equal(t, "Finish", course.CheckpointLabel(3))
	assert.True(t, course.IsLoaded())

	var empty *Course
	assert.False(t, empty.IsLoaded())
	assert.False(t, (&Course{}).IsLoaded())
}
