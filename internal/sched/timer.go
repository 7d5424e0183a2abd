package sched

import "time"

// Timer is a handle to a deferred loop task created by Loop.After.
//
// A Timer that already fired may have a task queued on the loop; callers
// that reset timers for debouncing should guard their fn against stale
// fires (a deadline check) rather than rely on Stop winning the race.
type Timer struct {
	t *time.Timer
}

// Stop disarms the timer. Returns false if it already fired or was never
// armed.
func (t *Timer) Stop() bool {
	if t == nil || t.t == nil {
		return false
	}
	return t.t.Stop()
}

// Reset re-arms the timer for the full duration d.
func (t *Timer) Reset(d time.Duration) {
	if t == nil || t.t == nil {
		return
	}
	t.t.Reset(d)
}
