package runtracker

import (
	"time"

	"github.com/google/uuid"
)

// Tracker ведёт один активный забег: двигает курсор по трассе,
// принимая сканирование только если оно совпадает с ожидаемой точкой.
//
// Tracker не потокобезопасен. Все вызовы должны идти из одного потока
// (или под внешним мьютексом), каждый payload обрабатывается до конца.
type Tracker struct {
	course CourseDefinition
	meta   Metadata
	clock  func() time.Time
	newID  func() string

	state     State
	cursor    int
	scans     []ScanEvent
	startedAt time.Time
	final     time.Duration
	result    *Result
}

// Option настраивает Tracker
type Option func(*Tracker)

// WithClock подменяет источник времени (для тестов)
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithIDGenerator подменяет генератор ID результата
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) {
		t.newID = gen
	}
}

// WithMetadata задаёт имя бегуна и трассу для результата
func WithMetadata(meta Metadata) Option {
	return func(t *Tracker) {
		t.meta = meta
	}
}

// NewTracker создаёт трекер в состоянии Idle. Трасса копируется,
// поэтому изменения исходного слайса не влияют на забег.
func NewTracker(course []string, opts ...Option) *Tracker {
	t := &Tracker{
		course: append(CourseDefinition(nil), course...),
		clock:  time.Now,
		newID:  func() string { return uuid.New().String() },
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start начинает новый забег. Допустим из Idle и Completed.
func (t *Tracker) Start() error {
	if t.course.Len() == 0 {
		return ErrCourseNotLoaded
	}
	if t.state == StateRunning {
		return ErrInvalidState
	}

	t.state = StateRunning
	t.cursor = 0
	t.scans = nil
	t.final = 0
	t.result = nil
	t.startedAt = t.clock()
	return nil
}

// Stop прерывает забег без результата и возвращает трекер в Idle.
// Сканы прерванного забега отбрасываются вместе со счетчиком отказов.
func (t *Tracker) Stop() error {
	if t.state != StateRunning {
		return ErrInvalidState
	}
	t.state = StateIdle
	t.cursor = 0
	t.scans = nil
	t.final = 0
	return nil
}

// SubmitScan оценивает payload относительно точки под курсором.
// Несовпадение не является ошибкой: скан записывается с Accepted=false.
// Result возвращается только для скана, завершившего забег.
func (t *Tracker) SubmitScan(payload string) (ScanEvent, *Result, error) {
	if t.state != StateRunning {
		return ScanEvent{}, nil, ErrInvalidState
	}

	now := t.clock()
	elapsed := now.Sub(t.startedAt)
	expected := t.course[t.cursor]

	ev := ScanEvent{
		Payload:       payload,
		ScannedAt:     now,
		Elapsed:       elapsed,
		Accepted:      payload == expected,
		ExpectedIndex: t.cursor,
	}
	t.scans = append(t.scans, ev)

	if !ev.Accepted {
		return ev, nil, nil
	}

	if t.cursor < t.course.Len()-1 {
		t.cursor++
		return ev, nil, nil
	}

	// последняя точка
	t.state = StateCompleted
	t.final = elapsed
	t.result = t.buildResult(now)
	return ev, t.result, nil
}

func (t *Tracker) buildResult(completedAt time.Time) *Result {
	splits := make([]Split, 0, t.course.Len())
	for _, s := range t.scans {
		if !s.Accepted {
			continue
		}
		splits = append(splits, Split{
			Index:   s.ExpectedIndex,
			Payload: s.Payload,
			Elapsed: s.Elapsed,
		})
	}

	return &Result{
		ID:           t.newID(),
		RunnerName:   t.meta.RunnerName,
		CourseID:     t.meta.CourseID,
		CourseName:   t.meta.CourseName,
		TotalElapsed: t.final,
		Splits:       splits,
		StartedAt:    t.startedAt,
		CompletedAt:  completedAt,
	}
}

// State возвращает текущее состояние
func (t *Tracker) State() State {
	return t.state
}

// Cursor возвращает индекс ожидаемой контрольной точки
func (t *Tracker) Cursor() int {
	return t.cursor
}

// Expected возвращает payload ожидаемой точки; false вне состояния Running
func (t *Tracker) Expected() (string, bool) {
	if t.state != StateRunning {
		return "", false
	}
	return t.course[t.cursor], true
}

// Course возвращает копию трассы
func (t *Tracker) Course() CourseDefinition {
	return append(CourseDefinition(nil), t.course...)
}

// Scans возвращает копию всех сканов (принятых и отклонённых) в хронологическом порядке
func (t *Tracker) Scans() []ScanEvent {
	return append([]ScanEvent(nil), t.scans...)
}

// RejectedCount количество отклонённых сканов
func (t *Tracker) RejectedCount() int {
	n := 0
	for _, s := range t.scans {
		if !s.Accepted {
			n++
		}
	}
	return n
}

// Elapsed возвращает время с начала забега. Для завершённого забега время заморожено.
func (t *Tracker) Elapsed() time.Duration {
	switch t.state {
	case StateRunning:
		return t.clock().Sub(t.startedAt)
	case StateCompleted:
		return t.final
	default:
		return 0
	}
}

// StartedAt возвращает момент старта текущего (или последнего) забега
func (t *Tracker) StartedAt() time.Time {
	return t.startedAt
}

// Result возвращает результат последнего завершённого забега
func (t *Tracker) Result() *Result {
	return t.result
}
