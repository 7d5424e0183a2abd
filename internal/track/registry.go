package track

import (
	"sort"
	"sync"
	"time"

	"rendertrace/internal/eventbus"
	"rendertrace/internal/sched"
	"rendertrace/pkg/logx"
)

// Registry owns one tracker per unit name and is the sole inbound entry
// point from the instrumented presentation layer.
type Registry struct {
	loop *sched.Loop
	sink Sink
	bus  eventbus.Bus
	cfg  Config
	log  logx.Logger

	// loop-confined
	trackers map[string]*tracker
	inFlight int

	// mirrors for off-loop readers
	mu        sync.RWMutex
	seqs      map[string]uint64
	totals    map[string]uint64
	histories map[string][]Event
}

func NewRegistry(loop *sched.Loop, sink Sink, bus eventbus.Bus, cfg Config, log logx.Logger) *Registry {
	return &Registry{
		loop:      loop,
		sink:      sink,
		bus:       bus,
		cfg:       cfg.withDefaults(),
		log:       log,
		trackers:  map[string]*tracker{},
		seqs:      map[string]uint64{},
		totals:    map[string]uint64{},
		histories: map[string][]Event{},
	}
}

// Apply swaps tunables at runtime. Shrinking HistoryDepth trims retained
// events immediately.
func (r *Registry) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	r.mu.Lock()
	r.cfg = cfg
	for unit, h := range r.histories {
		if over := len(h) - cfg.HistoryDepth; over > 0 {
			r.histories[unit] = h[over:]
		}
	}
	r.mu.Unlock()
}

// Record reports a single invocation as its own scheduling tick.
func (r *Registry) Record(inv Invocation) {
	r.RecordPass(inv)
}

// RecordPass reports one render pass: every invocation in it shares one
// scheduling tick, so duplicate invocations of a unit coalesce into a
// single emission and a parent and its children land in the same batch.
func (r *Registry) RecordPass(invs ...Invocation) {
	if len(invs) == 0 {
		return
	}
	passCopy := make([]Invocation, len(invs))
	copy(passCopy, invs)
	r.loop.Post(func() {
		now := time.Now()
		for _, inv := range passCopy {
			if inv.Unit == "" {
				continue
			}
			r.trackerFor(inv.Unit).observe(inv, now)
		}
	})
}

// Forget tears down a unit's tracker state. The unit's next invocation
// starts fresh (and classifies as initial again).
func (r *Registry) Forget(unit string) {
	r.loop.Post(func() {
		delete(r.trackers, unit)
		r.mu.Lock()
		delete(r.seqs, unit)
		delete(r.totals, unit)
		delete(r.histories, unit)
		r.mu.Unlock()
	})
}

// trackerFor lazily creates state for unknown unit names. Runs on the loop.
func (r *Registry) trackerFor(unit string) *tracker {
	t, ok := r.trackers[unit]
	if !ok {
		t = &tracker{unit: unit, reg: r}
		r.trackers[unit] = t
		r.log.Debug("tracking new unit", logx.String("unit", unit))
	}
	return t
}

// Sequences returns a copy of the per-unit render counts.
func (r *Registry) Sequences() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.seqs))
	for k, v := range r.seqs {
		out[k] = v
	}
	return out
}

// SequenceOf returns one unit's current render count (0 if unknown).
func (r *Registry) SequenceOf(unit string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seqs[unit]
}

// History returns a copy of a unit's retained events, oldest first.
func (r *Registry) History(unit string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.histories[unit]...)
}

// Stats snapshots every known unit's counters, sorted by unit name.
func (r *Registry) Stats() []UnitStats {
	r.mu.RLock()
	out := make([]UnitStats, 0, len(r.totals))
	for unit, total := range r.totals {
		out = append(out, UnitStats{Unit: unit, Total: total, Surfaced: r.seqs[unit]})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

func (r *Registry) noteInvocation(unit string, total uint64) {
	r.mu.Lock()
	r.totals[unit] = total
	r.mu.Unlock()
}

func (r *Registry) noteEmission(ev Event) {
	r.mu.Lock()
	r.seqs[ev.Unit] = ev.Sequence
	h := append(r.histories[ev.Unit], ev)
	if over := len(h) - r.cfg.HistoryDepth; over > 0 {
		h = h[over:]
	}
	r.histories[ev.Unit] = h
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(eventbus.Event{
			Type: "track.sequence",
			Time: ev.At,
			Data: SequenceUpdate{Unit: ev.Unit, Sequence: ev.Sequence, Reason: ev.Reason, At: ev.At},
		})
	}
}
