package runtracker

import "time"

// DefaultDebounceWindow окно подавления повторных сканов одного и того же кода
const DefaultDebounceWindow = 2 * time.Second

// Debouncer подавляет повторное распознавание одного QR-кода, пока он в кадре.
// Это свойство источника сканов, а не трекера: трекер оценивает каждый
// переданный ему payload ровно один раз.
type Debouncer struct {
	Window time.Duration

	last   string
	lastAt time.Time
	seen   bool
}

// NewDebouncer создаёт Debouncer; window <= 0 заменяется на DefaultDebounceWindow
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{Window: window}
}

// Allow сообщает, нужно ли передать payload дальше.
// Пропускается новый payload или тот же, но по прошествии окна.
func (d *Debouncer) Allow(payload string, now time.Time) bool {
	if d.seen && payload == d.last && now.Sub(d.lastAt) <= d.Window {
		return false
	}
	d.last = payload
	d.lastAt = now
	d.seen = true
	return true
}

// Reset забывает последний payload (например, при новом старте)
func (d *Debouncer) Reset() {
	d.last = ""
	d.lastAt = time.Time{}
	d.seen = false
}
