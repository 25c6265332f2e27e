package persist

import (
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet interval before a scheduled save fires.
const DefaultAutosaveDelay = 5 * time.Second

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock schedules on the runtime timer.
var SystemClock Clock = systemClock{}

// Debouncer runs fn once after delay has passed without another Schedule.
// Each Schedule replaces the pending run.
type Debouncer struct {
	clock Clock
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

func NewDebouncer(delay time.Duration, clock Clock, fn func()) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Schedule resets the quiet interval.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

// Cancel drops the pending run, if any.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
