package track

import (
	"time"

	"github.com/google/uuid"

	"rendertrace/internal/diffkit"
	"rendertrace/pkg/logx"
)

// tracker is the per-unit state machine. All fields are loop-confined.
type tracker struct {
	unit string
	reg  *Registry

	total uint64
	seq   uint64

	prevInternal map[string]any
	prevExternal map[string]any

	// committed survives duplicate invocations within one logical
	// update: a non-cascade classification is never downgraded by a
	// later cascade classification before the emission fires.
	committed    Reason
	committedSet bool

	// inFlight marks the window between an emission and the end of the
	// cascade it may cause.
	inFlight bool

	pending          *Event
	pendingScheduled bool
}

// observe processes one raw invocation. Runs on the loop.
func (t *tracker) observe(inv Invocation, now time.Time) {
	t.total++
	isInitial := t.total == 1

	changedInt, intDiffs := diffkit.Diff(t.prevInternal, inv.Internal)
	changedExt, extDiffs := diffkit.Diff(t.prevExternal, inv.External)
	fresh := classify(isInitial, changedInt, changedExt, inv.Forced)

	// Advance snapshots now. This is exactly what makes a duplicate
	// invocation of the same update look like a cascade; committed keeps
	// the true cause.
	if inv.Internal != nil {
		t.prevInternal = cloneSnapshot(inv.Internal)
	}
	if inv.External != nil {
		t.prevExternal = cloneSnapshot(inv.External)
	}

	if fresh != ReasonCascade || !t.committedSet {
		t.committed = fresh
		t.committedSet = true
	}

	t.reg.noteInvocation(t.unit, t.total)

	if t.committed == ReasonCascade && (t.inFlight || t.reg.inFlight > 0) {
		// Echo of our own emission: drop outright. No sequence bump, no
		// pending event.
		t.reg.log.Trace("cascade absorbed while dispatch in flight",
			logx.String("unit", t.unit),
			logx.Uint64("invocation", t.total),
		)
		return
	}

	ev := Event{
		ID:              uuid.NewString(),
		Unit:            t.unit,
		Reason:          t.committed,
		At:              now,
		ChangedInternal: changedInt,
		ChangedExternal: changedExt,
		InternalDiffs:   intDiffs,
		ExternalDiffs:   extDiffs,
	}
	// A duplicate invocation carries no diff of its own; keep the one
	// from the superseded pending event so the display survives.
	if t.pending != nil && fresh == ReasonCascade && t.committed != ReasonCascade {
		ev.ChangedInternal = t.pending.ChangedInternal
		ev.ChangedExternal = t.pending.ChangedExternal
		ev.InternalDiffs = t.pending.InternalDiffs
		ev.ExternalDiffs = t.pending.ExternalDiffs
	}

	// Same-tick coalescing: the last computed event wins, one deferred
	// emission per unit per tick.
	t.pending = &ev
	if !t.pendingScheduled {
		t.pendingScheduled = true
		t.reg.loop.Defer(t.emit)
	}
}

// emit fires the pending event. Runs as a microtask on the loop.
func (t *tracker) emit() {
	t.pendingScheduled = false
	ev := t.pending
	t.pending = nil
	if ev == nil {
		return
	}

	t.seq++
	ev.Sequence = t.seq
	t.committed = ""
	t.committedSet = false

	t.reg.noteEmission(*ev)

	// Absorb the synchronous ripple this emission may cause: everything
	// queued on the loop at this point runs before the flag clears.
	t.inFlight = true
	t.reg.inFlight++
	t.reg.sink.OnEvent(*ev)
	t.reg.loop.Post(func() {
		t.inFlight = false
		t.reg.inFlight--
	})
}

func cloneSnapshot(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
