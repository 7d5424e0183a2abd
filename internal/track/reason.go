package track

// Reason is the single deduced cause of one render event.
type Reason string

const (
	ReasonInitial  Reason = "initial"
	ReasonForced   Reason = "forced-update"
	ReasonInternal Reason = "internal-change"
	ReasonExternal Reason = "external-input-change"
	ReasonCascade  Reason = "cascade-from-parent"
)

// Priority orders reasons for batch headline selection; lower is more
// significant. A state change beats the parent re-renders it caused.
func (r Reason) Priority() int {
	switch r {
	case ReasonInitial:
		return 0
	case ReasonForced:
		return 1
	case ReasonInternal:
		return 2
	case ReasonExternal:
		return 3
	case ReasonCascade:
		return 4
	default:
		return 5
	}
}

func (r Reason) String() string { return string(r) }

// classify deduces a reason, first match wins. A unit that re-executed
// with no detected local cause was re-invoked by its owner: cascade is
// the fallback, not an error.
func classify(isInitial bool, changedInternal, changedExternal []string, forced bool) Reason {
	switch {
	case isInitial:
		return ReasonInitial
	case forced:
		return ReasonForced
	case len(changedInternal) > 0:
		return ReasonInternal
	case len(changedExternal) > 0:
		return ReasonExternal
	default:
		return ReasonCascade
	}
}
