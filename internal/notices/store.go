package notices

import (
	"sync"
	"time"

	"rendertrace/internal/eventbus"
	"rendertrace/internal/sched"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

// Notification is one finalized, displayable render alert.
//
// Batch is present only when two or more events coalesced within one
// batching window; it preserves arrival order for detail inspection
// while Primary carries the root-cause (highest-priority) event.
type Notification struct {
	ID        string        `json:"id"`
	Primary   track.Event   `json:"primary"`
	Batch     []track.Event `json:"batch,omitempty"`
	Expanded  bool          `json:"expanded"`
	CreatedAt time.Time     `json:"created_at"`
}

// Cause says why a notification left the store.
type Cause string

const (
	CauseDismissed Cause = "dismissed"
	CauseExpired   Cause = "expired"
	CauseEvicted   Cause = "evicted"
	CauseCleared   Cause = "cleared"
)

// Removal is the "notices.removed" bus payload.
type Removal struct {
	ID    string
	Cause Cause
}

// Toggle is the "notices.expanded" bus payload.
type Toggle struct {
	ID       string
	Expanded bool
}

type Config struct {
	// MaxDepth bounds the queue; the oldest notification is evicted
	// when a new one arrives at capacity.
	MaxDepth int
	// TTL is the auto-expiry timeout. Zero disables expiry. Expanding a
	// notification pauses its TTL; collapsing re-arms it in full.
	TTL time.Duration
}

const (
	defaultMaxDepth = 10

	// DefaultTTL applies when the config omits a TTL entirely; an
	// explicit zero disables expiry instead.
	DefaultTTL = 8 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
	return c
}

type entry struct {
	n      Notification
	expiry *sched.Timer
}

// Store is a bounded, newest-first notification queue. Safe for
// concurrent use.
type Store struct {
	loop *sched.Loop
	bus  eventbus.Bus
	log  logx.Logger

	mu    sync.Mutex
	cfg   Config
	items []*entry // newest first
}

func NewStore(loop *sched.Loop, bus eventbus.Bus, cfg Config, log logx.Logger) *Store {
	return &Store{
		loop: loop,
		bus:  bus,
		log:  log,
		cfg:  cfg.withDefaults(),
	}
}

// Apply swaps tunables at runtime. Shrinking MaxDepth evicts from the
// tail immediately; TTL changes affect only notifications appended later.
func (s *Store) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	evicted := s.truncateLocked()
	s.mu.Unlock()
	for _, e := range evicted {
		s.publishRemoved(e.n.ID, CauseEvicted)
	}
}

// Append prepends n and evicts beyond MaxDepth.
func (s *Store) Append(n Notification) {
	s.mu.Lock()
	e := &entry{n: n}
	if s.cfg.TTL > 0 {
		id := n.ID
		e.expiry = s.loop.After(s.cfg.TTL, func() { s.expire(id) })
	}
	s.items = append([]*entry{e}, s.items...)
	evicted := s.truncateLocked()
	s.mu.Unlock()

	s.publish("notices.appended", n)
	for _, ev := range evicted {
		s.publishRemoved(ev.n.ID, CauseEvicted)
	}
}

// Remove dismisses a notification. Reports whether it was present.
func (s *Store) Remove(id string) bool {
	if s.removeByID(id) {
		s.publishRemoved(id, CauseDismissed)
		return true
	}
	return false
}

// ToggleExpanded flips a notification's expanded state. Expanding pauses
// auto-expiry; collapsing re-arms the full TTL.
func (s *Store) ToggleExpanded(id string) bool {
	s.mu.Lock()
	found := false
	expanded := false
	for _, e := range s.items {
		if e.n.ID == id {
			e.n.Expanded = !e.n.Expanded
			expanded = e.n.Expanded
			if expanded {
				if e.expiry != nil {
					e.expiry.Stop()
					e.expiry = nil
				}
			} else if s.cfg.TTL > 0 {
				nid := e.n.ID
				e.expiry = s.loop.After(s.cfg.TTL, func() { s.expire(nid) })
			}
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return false
	}
	s.publish("notices.expanded", Toggle{ID: id, Expanded: expanded})
	return true
}

// Clear drops everything.
func (s *Store) Clear() {
	s.mu.Lock()
	dropped := s.items
	s.items = nil
	s.mu.Unlock()

	for _, e := range dropped {
		if e.expiry != nil {
			e.expiry.Stop()
		}
	}
	if len(dropped) > 0 {
		s.publish("notices.cleared", len(dropped))
	}
}

// Snapshot returns a copy of the queue, newest first.
func (s *Store) Snapshot() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e.n)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) expire(id string) {
	s.mu.Lock()
	found := false
	for i, e := range s.items {
		if e.n.ID == id {
			// Expanded notifications don't expire; their timer was
			// stopped, this is only a late-firing guard.
			if e.n.Expanded {
				s.mu.Unlock()
				return
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.publishRemoved(id, CauseExpired)
	}
}

func (s *Store) removeByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.n.ID == id {
			if e.expiry != nil {
				e.expiry.Stop()
			}
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// truncateLocked enforces MaxDepth and returns the evicted tail.
func (s *Store) truncateLocked() []*entry {
	if len(s.items) <= s.cfg.MaxDepth {
		return nil
	}
	evicted := s.items[s.cfg.MaxDepth:]
	s.items = s.items[:s.cfg.MaxDepth]
	for _, e := range evicted {
		if e.expiry != nil {
			e.expiry.Stop()
		}
	}
	return evicted
}

func (s *Store) publish(typ string, data any) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Data: data})
	}
}

func (s *Store) publishRemoved(id string, cause Cause) {
	s.log.Debug("notification removed", logx.String("id", id), logx.String("cause", string(cause)))
	s.publish("notices.removed", Removal{ID: id, Cause: cause})
}
