package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/checkrun-api/internal/domain/entity"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.00"},
		{1234 * time.Millisecond, "00:01.23"},
		{61*time.Second + 50*time.Millisecond, "01:01.05"},
		{125*time.Minute + 9*time.Millisecond, "125:00.00"},
		{-time.Second, "00:00.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.in), tt.in.String())
	}
}

func TestNewRunResponse_Labels(t *testing.T) {
	run := &entity.Run{
		ID:      "r1",
		TotalMs: 4000,
		Splits: []entity.RunSplit{
			{CheckpointIndex: 0, ElapsedMs: 0},
			{CheckpointIndex: 1, ElapsedMs: 1500},
			{CheckpointIndex: 2, ElapsedMs: 4000},
		},
	}

	resp := NewRunResponse(run, 3)
	require.Len(t, resp.Splits, 3)
	assert.Equal(t, "Start", resp.Splits[0].Label)
	assert.Equal(t, "Control-1", resp.Splits[1].Label)
	assert.Equal(t, "Finish", resp.Splits[2].Label)
	assert.Equal(t, "00:04.00", resp.Total)
	assert.Equal(t, "00:01.50", resp.Splits[1].Elapsed)

	assert.Nil(t, NewRunResponse(nil, 3))
}

func TestScanRequest_DebounceDefault(t *testing.T) {
	off := false
	assert.True(t, ScanRequest{Payload: "A"}.DebounceEnabled())
	assert.False(t, ScanRequest{Payload: "A", Debounce: &off}.DebounceEnabled())
}
