package track

import (
	"time"

	"rendertrace/internal/diffkit"
)

// Invocation is one execution of a unit's body, reported by the
// instrumented presentation layer. Nil snapshots mean "not tracked",
// never "empty".
type Invocation struct {
	Unit     string
	Internal map[string]any
	External map[string]any
	Forced   bool
}

// Event is one surfaced render of a unit.
//
// Sequence is the user-visible render count: monotonic per unit name,
// incremented only when an event is actually emitted. Invocations
// filtered as self-inflicted cascades do not advance it.
type Event struct {
	ID       string    `json:"id"`
	Unit     string    `json:"unit"`
	Sequence uint64    `json:"sequence"`
	Reason   Reason    `json:"reason"`
	At       time.Time `json:"at"`

	ChangedInternal []string         `json:"changed_internal,omitempty"`
	ChangedExternal []string         `json:"changed_external,omitempty"`
	InternalDiffs   []diffkit.Change `json:"internal_diffs,omitempty"`
	ExternalDiffs   []diffkit.Change `json:"external_diffs,omitempty"`
}

// Sink receives emitted events. The Registry calls it on the loop.
type Sink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// UnitStats is a read-only snapshot of one unit's counters.
type UnitStats struct {
	Unit     string
	Total    uint64 // raw invocations, including filtered ones
	Surfaced uint64 // emitted events (current Sequence)
}

// SequenceUpdate is published on the event bus as "track.sequence" every
// time a unit's render count advances, for badge-style consumers.
type SequenceUpdate struct {
	Unit     string
	Sequence uint64
	Reason   Reason
	At       time.Time
}

// Config holds the registry tunables.
type Config struct {
	// HistoryDepth bounds the per-unit event history kept for
	// inspection. Oldest entries drop first.
	HistoryDepth int
}

const defaultHistoryDepth = 100

func (c Config) withDefaults() Config {
	if c.HistoryDepth <= 0 {
		c.HistoryDepth = defaultHistoryDepth
	}
	return c
}
