package notices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rendertrace/internal/eventbus"
	"rendertrace/internal/sched"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

func newTestStore(t *testing.T, cfg Config) (*Store, eventbus.Bus) {
	t.Helper()
	loop := sched.New(0, logx.Nop())
	loop.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		loop.Stop(ctx)
	})
	bus := eventbus.New()
	return NewStore(loop, bus, cfg, logx.Nop()), bus
}

func notif(id string) Notification {
	return Notification{
		ID:        id,
		Primary:   track.Event{ID: id, Unit: "U", Reason: track.ReasonInternal, Sequence: 1},
		CreatedAt: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAppendNewestFirstAndBounded(t *testing.T) {
	s, _ := newTestStore(t, Config{MaxDepth: 3, TTL: 0})

	for i := 0; i < 5; i++ {
		s.Append(notif(fmt.Sprintf("n%d", i)))
	}

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "n4", snap[0].ID, "newest first")
	require.Equal(t, "n2", snap[2].ID, "oldest evicted")
}

func TestRemoveAndClear(t *testing.T) {
	s, bus := newTestStore(t, Config{MaxDepth: 5, TTL: 0})
	ch, un := bus.SubscribeTopics(8, "notices.removed", "notices.cleared")
	defer un()

	s.Append(notif("a"))
	s.Append(notif("b"))

	require.True(t, s.Remove("a"))
	require.False(t, s.Remove("a"), "double dismiss is a no-op")

	ev := <-ch
	require.Equal(t, "notices.removed", ev.Type)
	require.Equal(t, Removal{ID: "a", Cause: CauseDismissed}, ev.Data)

	s.Clear()
	require.Zero(t, s.Len())
	ev = <-ch
	require.Equal(t, "notices.cleared", ev.Type)
}

func TestAutoExpiry(t *testing.T) {
	s, bus := newTestStore(t, Config{MaxDepth: 5, TTL: 30 * time.Millisecond})
	ch, un := bus.SubscribeTopics(8, "notices.removed")
	defer un()

	s.Append(notif("fleeting"))
	waitFor(t, func() bool { return s.Len() == 0 }, "notification never expired")

	ev := <-ch
	require.Equal(t, Removal{ID: "fleeting", Cause: CauseExpired}, ev.Data)
}

func TestExpandPausesExpiry(t *testing.T) {
	s, _ := newTestStore(t, Config{MaxDepth: 5, TTL: 40 * time.Millisecond})

	s.Append(notif("pinned"))
	require.True(t, s.ToggleExpanded("pinned"))

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, s.Len(), "expanded notifications must not expire")
	require.True(t, s.Snapshot()[0].Expanded)

	// Collapsing re-arms the full TTL.
	require.True(t, s.ToggleExpanded("pinned"))
	waitFor(t, func() bool { return s.Len() == 0 }, "collapsed notification never expired")
}

func TestApplyShrinksDepth(t *testing.T) {
	s, _ := newTestStore(t, Config{MaxDepth: 5, TTL: 0})
	for i := 0; i < 5; i++ {
		s.Append(notif(fmt.Sprintf("n%d", i)))
	}

	s.Apply(Config{MaxDepth: 2, TTL: 0})
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "n4", snap[0].ID)
}

func TestToggleUnknownID(t *testing.T) {
	s, _ := newTestStore(t, Config{MaxDepth: 5, TTL: 0})
	require.False(t, s.ToggleExpanded("nope"))
}
