package dispatch

import "sync/atomic"

// Gate is the global suppression switch. While active, tracked events
// are still recorded upstream (counters keep moving) but nothing is
// surfaced as a notification.
//
// It is a single boolean, deliberately not a counter: Begin/End must be
// paired by the caller, and End's deferral until the triggering cascade
// has committed is the caller's concern.
type Gate struct {
	active  atomic.Bool
	onBegin func()
}

func NewGate() *Gate { return &Gate{} }

func (g *Gate) Begin() {
	g.active.Store(true)
	if g.onBegin != nil {
		g.onBegin()
	}
}

func (g *Gate) End() {
	g.active.Store(false)
}

func (g *Gate) Active() bool { return g.active.Load() }
