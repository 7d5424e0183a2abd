package simulate

import (
	"fmt"
	"sort"
	"time"

	"rendertrace/internal/track"
)

// scenario is one scripted interaction with the simulated tree.
type scenario struct {
	name string
	desc string
	run  func(s *Service)
}

func builtins() map[string]scenario {
	list := []scenario{
		{
			name: "mount-tree",
			desc: "initial mount of the demo component tree",
			run:  (*Service).runMountTree,
		},
		{
			name: "counter-click",
			desc: "state change on Counter cascading into its subtree, with double-invocation",
			run:  (*Service).runCounterClick,
		},
		{
			name: "typing-burst",
			desc: "rapid keystrokes in SearchBox, coalesced by the batching window",
			run:  (*Service).runTypingBurst,
		},
		{
			name: "forced-refresh",
			desc: "forced update on Dashboard plus the cascades it drags along",
			run:  (*Service).runForcedRefresh,
		},
		{
			name: "chrome-toggle",
			desc: "display-mode switch under the suppression gate: counted, never surfaced",
			run:  (*Service).runChromeToggle,
		},
	}
	m := make(map[string]scenario, len(list))
	for _, sc := range list {
		m[sc.name] = sc
	}
	return m
}

// Names lists the built-in scenarios, sorted.
func Names() []string {
	m := builtins()
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *Service) runMountTree() {
	s.mu.Lock()
	s.clicks = 0
	s.query = ""
	s.mu.Unlock()

	s.reg.RecordPass(
		track.Invocation{Unit: "App"},
		track.Invocation{Unit: "Header", External: map[string]any{"title": "rendertrace"}},
		track.Invocation{Unit: "Counter", Internal: map[string]any{"count": 0}},
		track.Invocation{Unit: "CounterLabel", External: map[string]any{"count": 0}},
		track.Invocation{Unit: "SearchBox", Internal: map[string]any{"query": ""}},
	)
}

func (s *Service) runCounterClick() {
	s.mu.Lock()
	s.clicks++
	n := s.clicks
	s.mu.Unlock()

	// One logical update: the runtime invokes Counter twice (consistency
	// check), then re-renders the label with new props and the header
	// with no local cause at all.
	s.reg.RecordPass(
		track.Invocation{Unit: "Counter", Internal: map[string]any{"count": n}},
		track.Invocation{Unit: "Counter", Internal: map[string]any{"count": n}},
		track.Invocation{Unit: "CounterLabel", External: map[string]any{"count": n}},
		track.Invocation{Unit: "Header", External: map[string]any{"title": "rendertrace"}},
	)
}

func (s *Service) runTypingBurst() {
	s.mu.Lock()
	base := s.query
	s.mu.Unlock()

	for i := 0; i < 4; i++ {
		base += string(rune('a' + i))
		s.reg.RecordPass(
			track.Invocation{Unit: "SearchBox", Internal: map[string]any{"query": base}},
		)
		time.Sleep(40 * time.Millisecond)
	}

	s.mu.Lock()
	s.query = base
	s.mu.Unlock()
}

func (s *Service) runForcedRefresh() {
	s.reg.RecordPass(
		track.Invocation{Unit: "Dashboard", Forced: true},
		track.Invocation{Unit: "Header", External: map[string]any{"title": "rendertrace"}},
		track.Invocation{Unit: "App"},
	)
}

func (s *Service) runChromeToggle() {
	s.mu.Lock()
	s.darkMode = !s.darkMode
	dark := s.darkMode
	s.mu.Unlock()

	s.gate.Begin()
	s.reg.RecordPass(
		track.Invocation{Unit: "App", Internal: map[string]any{"dark": dark}},
		track.Invocation{Unit: "Header", External: map[string]any{"title": "rendertrace", "dark": dark}},
		track.Invocation{Unit: "Counter", Internal: map[string]any{"count": s.currentClicks()}},
	)
	// End must outlive the full downstream cascade of the toggle,
	// including the batching window that would otherwise surface it.
	time.AfterFunc(s.suppressHold, s.gate.End)
}

func (s *Service) currentClicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks
}

func scenarioDesc(name string) string {
	if sc, ok := builtins()[name]; ok {
		return sc.desc
	}
	return fmt.Sprintf("unknown scenario %q", name)
}
