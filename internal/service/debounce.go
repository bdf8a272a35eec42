package service

import (
	"sync"
	"time"
)

// Timer is the minimal surface the debouncer needs from a timer. The real
// implementation wraps time.AfterFunc; tests substitute a manual timer so the
// quiet period can be driven without sleeping.
type Timer interface {
	Reset(d time.Duration) bool
	Stop() bool
}

// TimerFactory creates an armed timer that calls fn after d elapses.
type TimerFactory func(d time.Duration, fn func()) Timer

type realTimer struct{ *time.Timer }

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

// debouncer is a trailing-edge debounce scheduler: the callback runs once the
// quiet period has elapsed since the most recent Trigger. Every Trigger
// replaces the pending callback, so the fired callback always observes the
// newest state, never a snapshot captured when the timer was first armed.
type debouncer struct {
	quiet   time.Duration
	factory TimerFactory

	mu    sync.Mutex
	timer Timer
	fn    func()
}

func newDebouncer(quiet time.Duration, factory TimerFactory) *debouncer {
	if factory == nil {
		factory = defaultTimerFactory
	}
	return &debouncer{quiet: quiet, factory: factory}
}

// Trigger arms (or re-arms) the quiet-period timer with fn as the pending
// callback.
func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	if d.timer == nil {
		d.timer = d.factory(d.quiet, d.fire)
		return
	}
	d.timer.Reset(d.quiet)
}

// Stop cancels any pending callback.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
