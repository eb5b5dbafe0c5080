package runtracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run собирает результат из накопленных времён в секундах; -1 означает отсутствие скана
func run(id string, cumulative ...int) *Result {
	r := &Result{ID: id, RunnerName: id}
	for i, c := range cumulative {
		if c < 0 {
			continue
		}
		r.Splits = append(r.Splits, Split{Index: i, Elapsed: time.Duration(c) * time.Second})
		r.TotalElapsed = time.Duration(c) * time.Second
	}
	return r
}

func TestRank_SkipRankingWithTies(t *testing.T) {
	runs := []*Result{
		run("r1", 10),
		run("r2", 10),
		run("r3", 20),
		run("r4", 30),
	}

	classes := Rank(runs, 0, MetricCumulative)

	assert.Equal(t, RankFastest, classes["r1"])
	assert.Equal(t, RankFastest, classes["r2"])
	assert.Equal(t, RankThird, classes["r3"], "два значения строго меньше → ранг 2")
	assert.Equal(t, RankOther, classes["r4"])
}

func TestRank_DistinctValues(t *testing.T) {
	runs := []*Result{run("a", 40), run("b", 10), run("c", 30), run("d", 20), run("e", 50)}

	classes := Rank(runs, 0, MetricCumulative)

	assert.Equal(t, map[string]RankClass{
		"b": RankFastest,
		"d": RankSecond,
		"c": RankThird,
		"a": RankOther,
		"e": RankOther,
	}, classes)
}

func TestRank_RunnerWithoutScanExcluded(t *testing.T) {
	runs := []*Result{
		run("a", 10, 20),
		run("b", 10, -1),
		run("c", 15, 40),
	}

	classes := Rank(runs, 1, MetricCumulative)

	_, ok := classes["b"]
	assert.False(t, ok, "забег без скана на точке не ранжируется")
	assert.Equal(t, RankFastest, classes["a"])
	assert.Equal(t, RankSecond, classes["c"])
}

func TestLegTime(t *testing.T) {
	r := run("a", 12, 30, 31)

	leg0, ok := LegTime(r, 0)
	require.True(t, ok)
	cum0, _ := CumulativeTime(r, 0)
	assert.Equal(t, cum0, leg0, "этап 0 равен накопленному времени 0")

	leg1, ok := LegTime(r, 1)
	require.True(t, ok)
	assert.Equal(t, 18*time.Second, leg1)

	leg2, ok := LegTime(r, 2)
	require.True(t, ok)
	assert.Equal(t, time.Second, leg2)

	_, ok = LegTime(r, 3)
	assert.False(t, ok)
}

func TestLegTime_NonNegativeForTrackerResults(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker([]string{"A", "B", "C", "D"}, clock)
	require.NoError(t, tr.Start())
	var res *Result
	for i, p := range []string{"A", "B", "C", "D"} {
		clock.Advance(time.Duration(i*137) * time.Millisecond)
		_, r, err := tr.SubmitScan(p)
		require.NoError(t, err)
		res = r
	}
	require.NotNil(t, res)
	for i := 0; i < 4; i++ {
		leg, ok := LegTime(res, i)
		require.True(t, ok)
		assert.GreaterOrEqual(t, leg, time.Duration(0))
	}
}

func TestRank_LegAndCumulativeIndependent(t *testing.T) {
	// a быстрее всех на втором этапе, но медленнее всех в сумме
	runs := []*Result{
		run("a", 50, 55),
		run("b", 10, 30),
		run("c", 20, 45),
	}

	leg := Rank(runs, 1, MetricLeg)
	cum := Rank(runs, 1, MetricCumulative)

	assert.Equal(t, RankFastest, leg["a"])
	assert.Equal(t, RankThird, cum["a"])
	assert.Equal(t, RankFastest, cum["b"])
}

func TestBuildBoard(t *testing.T) {
	runs := []*Result{
		run("slow", 30, 60),
		run("fast", 10, 20),
		run("partial", 15, -1),
	}
	runs[2].TotalElapsed = 90 * time.Second

	board := BuildBoard(runs, 2)

	assert.Equal(t, 2, board.CheckpointCount)
	require.Len(t, board.Rows, 3)
	assert.Equal(t, "fast", board.Rows[0].RunID)
	assert.Equal(t, "slow", board.Rows[1].RunID)
	assert.Equal(t, "partial", board.Rows[2].RunID)

	fast := board.Rows[0]
	require.Len(t, fast.Cells, 2)
	assert.True(t, fast.Cells[0].HasData)
	assert.Equal(t, RankFastest, fast.Cells[0].CumulativeClass)
	assert.Equal(t, RankFastest, fast.Cells[1].LegClass)
	assert.Equal(t, 10*time.Second, fast.Cells[1].Leg)

	partial := board.Rows[2]
	assert.Equal(t, RankSecond, partial.Cells[0].CumulativeClass)
	assert.False(t, partial.Cells[1].HasData, "нет данных → ячейка без ранга")
	assert.Empty(t, partial.Cells[1].CumulativeClass)
	assert.Empty(t, partial.Cells[1].LegClass)
}

func TestBuildBoard_Empty(t *testing.T) {
	board := BuildBoard(nil, 3)
	assert.Equal(t, 3, board.CheckpointCount)
	assert.Empty(t, board.Rows)
}

func TestParseMetric(t *testing.T) {
	m, ok := ParseMetric("leg")
	assert.True(t, ok)
	assert.Equal(t, MetricLeg, m)

	m, ok = ParseMetric("cumulative")
	assert.True(t, ok)
	assert.Equal(t, MetricCumulative, m)

	_, ok = ParseMetric("speed")
	assert.False(t, ok)
}
