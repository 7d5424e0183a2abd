// Package eventbus decouples the tracking pipeline from its consumers.
//
// The store and the registry publish here; presentation-side code
// (badges, toasts, the console presenter) subscribes. Publishers never
// block and never learn who is listening.
package eventbus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is a lightweight, in-memory signal.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Type is a dotted topic, e.g. "notices.appended" or "track.sequence".
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
	// SubscribeTopics delivers only events whose Type matches one of the
	// given topics. A topic ending in "." matches as a prefix
	// ("notices." matches every store event).
	SubscribeTopics(buffer int, topics ...string) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &fanout{subs: map[uint64]*sub{}}
}

type sub struct {
	ch     chan Event
	topics []string // empty = all
}

func (s *sub) wants(typ string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, t := range s.topics {
		if t == typ {
			return true
		}
		if strings.HasSuffix(t, ".") && strings.HasPrefix(typ, t) {
			return true
		}
	}
	return false
}

type fanout struct {
	mu   sync.RWMutex
	subs map[uint64]*sub
	seq  atomic.Uint64
}

func (b *fanout) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot subscribers so Publish doesn't hold locks while attempting sends.
	b.mu.RLock()
	targets := make([]*sub, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Type) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		// Non-blocking delivery. If subscriber is slow, we drop.
		// If a subscriber unsubscribes concurrently and the channel closes,
		// recover from a possible panic (send on closed channel).
		func() {
			defer func() { _ = recover() }()
			select {
			case s.ch <- e:
			default:
			}
		}()
	}
}

func (b *fanout) Subscribe(buffer int) (<-chan Event, func()) {
	return b.SubscribeTopics(buffer)
}

func (b *fanout) SubscribeTopics(buffer int, topics ...string) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	s := &sub{ch: make(chan Event, buffer), topics: topics}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(s.ch)
		})
	}
	return s.ch, unsub
}
