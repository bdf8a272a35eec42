package service

import (
	"testing"
	"time"
)

func TestDebouncer_FireRunsLatestCallback(t *testing.T) {
	rig := &timerRig{}
	d := newDebouncer(time.Second, rig.factory)

	var got int
	d.Trigger(func() { got = 1 })
	d.Trigger(func() { got = 2 })
	d.Trigger(func() { got = 3 })

	if len(rig.timers) != 1 {
		t.Fatalf("timers = %d, want 1", len(rig.timers))
	}
	rig.timers[0].fire()

	if got != 3 {
		t.Fatalf("fired callback = %d, want the latest (3)", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	rig := &timerRig{}
	d := newDebouncer(time.Second, rig.factory)

	fired := false
	d.Trigger(func() { fired = true })
	d.Stop()

	// Even if the timer races Stop and still fires, the callback is gone.
	rig.timers[0].fire()
	if fired {
		t.Fatal("stopped debouncer must not run the callback")
	}
}

func TestDebouncer_TriggerAfterFireRearms(t *testing.T) {
	rig := &timerRig{}
	d := newDebouncer(time.Second, rig.factory)

	count := 0
	d.Trigger(func() { count++ })
	rig.timers[0].fire()
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	// Firing again without a new trigger does nothing.
	rig.timers[0].fire()
	if count != 1 {
		t.Fatalf("count = %d, want still 1", count)
	}

	d.Trigger(func() { count++ })
	rig.timers[0].fire()
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestDefaultTimerFactory(t *testing.T) {
	done := make(chan struct{})
	tm := defaultTimerFactory(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	tm.Stop()
}
