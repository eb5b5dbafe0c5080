package runtracker

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// Metric метрика, по которой ранжируются бегуны на контрольной точке
type Metric int

const (
	MetricLeg Metric = iota
	MetricCumulative
)

// String возвращает имя метрики
func (m Metric) String() string {
	if m == MetricLeg {
		return "leg"
	}
	return "cumulative"
}

// ParseMetric разбирает имя метрики ("leg" или "cumulative")
func ParseMetric(s string) (Metric, bool) {
	switch s {
	case "leg":
		return MetricLeg, true
	case "cumulative", "total":
		return MetricCumulative, true
	}
	return 0, false
}

// RankClass класс места для раскраски ячейки лидерборда
type RankClass string

const (
	RankFastest RankClass = "fastest"
	RankSecond  RankClass = "second"
	RankThird   RankClass = "third"
	RankOther   RankClass = "other"
)

// classForRank: 0 → fastest, 1 → second, 2 → third, остальное → other
func classForRank(rank int) RankClass {
	switch rank {
	case 0:
		return RankFastest
	case 1:
		return RankSecond
	case 2:
		return RankThird
	default:
		return RankOther
	}
}

// CumulativeTime время от старта до контрольной точки index
func CumulativeTime(run *Result, index int) (time.Duration, bool) {
	s, ok := run.SplitAt(index)
	if !ok {
		return 0, false
	}
	return s.Elapsed, true
}

// LegTime время этапа: cumulative(index) - cumulative(index-1), для index 0 равно cumulative(0)
func LegTime(run *Result, index int) (time.Duration, bool) {
	cur, ok := CumulativeTime(run, index)
	if !ok {
		return 0, false
	}
	if index == 0 {
		return cur, true
	}
	prev, ok := CumulativeTime(run, index-1)
	if !ok {
		return 0, false
	}
	return cur - prev, true
}

// MetricValue возвращает значение метрики для забега на точке index
func MetricValue(run *Result, index int, metric Metric) (time.Duration, bool) {
	if metric == MetricLeg {
		return LegTime(run, index)
	}
	return CumulativeTime(run, index)
}

// Rank вычисляет класс места каждого забега на точке checkpointIndex по метрике.
// Ранжирование с пропусками: ранг значения равен количеству строго меньших значений.
// Забеги без данных на этой точке в результат не попадают.
func Rank(runs []*Result, checkpointIndex int, metric Metric) map[string]RankClass {
	values := make(map[string]time.Duration, len(runs))
	for _, run := range runs {
		if v, ok := MetricValue(run, checkpointIndex, metric); ok {
			values[run.ID] = v
		}
	}

	sorted := lo.Values(values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	classes := make(map[string]RankClass, len(values))
	for id, v := range values {
		// первый индекс, где sorted[i] >= v, и есть число строго меньших значений
		rank := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= v })
		classes[id] = classForRank(rank)
	}
	return classes
}

// Cell ячейка лидерборда: пара (этап, накопленное) для одной контрольной точки
type Cell struct {
	Index           int           `json:"index"`
	HasData         bool          `json:"has_data"`
	Leg             time.Duration `json:"leg"`
	Cumulative      time.Duration `json:"cumulative"`
	LegClass        RankClass     `json:"leg_class,omitempty"`
	CumulativeClass RankClass     `json:"cumulative_class,omitempty"`
}

// Row строка лидерборда (один забег)
type Row struct {
	RunID        string        `json:"run_id"`
	RunnerName   string        `json:"runner_name"`
	TotalElapsed time.Duration `json:"total_elapsed"`
	CompletedAt  time.Time     `json:"completed_at"`
	Cells        []Cell        `json:"cells"`
}

// Board полная таблица лидерборда трассы
type Board struct {
	CheckpointCount int   `json:"checkpoint_count"`
	Rows            []Row `json:"rows"`
}

// BuildBoard строит таблицу: строки по возрастанию итогового времени,
// столбцы по контрольным точкам, каждая метрика ранжируется независимо.
func BuildBoard(runs []*Result, checkpointCount int) Board {
	ordered := append([]*Result(nil), runs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalElapsed < ordered[j].TotalElapsed
	})

	legRanks := make([]map[string]RankClass, checkpointCount)
	cumRanks := make([]map[string]RankClass, checkpointCount)
	for i := 0; i < checkpointCount; i++ {
		legRanks[i] = Rank(ordered, i, MetricLeg)
		cumRanks[i] = Rank(ordered, i, MetricCumulative)
	}

	rows := lo.Map(ordered, func(run *Result, _ int) Row {
		cells := make([]Cell, checkpointCount)
		for i := 0; i < checkpointCount; i++ {
			cell := Cell{Index: i}
			cum, okCum := CumulativeTime(run, i)
			leg, okLeg := LegTime(run, i)
			if okCum {
				cell.HasData = true
				cell.Cumulative = cum
				cell.CumulativeClass = cumRanks[i][run.ID]
			}
			if okLeg {
				cell.Leg = leg
				cell.LegClass = legRanks[i][run.ID]
			}
			cells[i] = cell
		}
		return Row{
			RunID:        run.ID,
			RunnerName:   run.RunnerName,
			TotalElapsed: run.TotalElapsed,
			CompletedAt:  run.CompletedAt,
			Cells:        cells,
		}
	})

	return Board{
		CheckpointCount: checkpointCount,
		Rows:            rows,
	}
}
