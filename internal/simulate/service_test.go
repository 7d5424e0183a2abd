package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rendertrace/internal/dispatch"
	"rendertrace/internal/notices"
	"rendertrace/internal/sched"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

type rig struct {
	loop  *sched.Loop
	gate  *dispatch.Gate
	store *notices.Store
	reg   *track.Registry
	sim   *Service
}

func newRig(t *testing.T, window time.Duration) *rig {
	t.Helper()
	loop := sched.New(0, logx.Nop())
	gate := dispatch.NewGate()
	store := notices.NewStore(loop, nil, notices.Config{MaxDepth: 10, TTL: 0}, logx.Nop())
	disp := dispatch.New(loop, gate, store, dispatch.Config{Window: window}, logx.Nop())
	reg := track.NewRegistry(loop, disp, nil, track.Config{}, logx.Nop())
	sim := New(reg, gate, Config{SuppressHold: 3 * window}, logx.Nop())
	loop.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		sim.Stop(ctx)
		loop.Stop(ctx)
	})
	return &rig{loop: loop, gate: gate, store: store, reg: reg, sim: sim}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNames(t *testing.T) {
	names := Names()
	require.Contains(t, names, "mount-tree")
	require.Contains(t, names, "counter-click")
	require.Contains(t, names, "chrome-toggle")
}

func TestRunUnknownScenario(t *testing.T) {
	r := newRig(t, 20*time.Millisecond)
	require.ErrorIs(t, r.sim.Run("nope"), ErrUnknownScenario)
}

func TestMountTreeSurfacesNothing(t *testing.T) {
	r := newRig(t, 20*time.Millisecond)

	require.NoError(t, r.sim.Run("mount-tree"))
	time.Sleep(100 * time.Millisecond)

	require.Zero(t, r.store.Len(), "mounts are filtered")
	require.Equal(t, uint64(1), r.reg.SequenceOf("Counter"), "mounts still count as renders")
}

func TestCounterClickSurfacesStateChange(t *testing.T) {
	r := newRig(t, 20*time.Millisecond)

	require.NoError(t, r.sim.Run("mount-tree"))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, r.sim.Run("counter-click"))

	waitFor(t, func() bool { return r.store.Len() == 1 }, "click never surfaced")
	n := r.store.Snapshot()[0]
	require.Equal(t, "Counter", n.Primary.Unit)
	require.Equal(t, track.ReasonInternal, n.Primary.Reason)
	require.Equal(t, []string{"count"}, n.Primary.ChangedInternal)
}

func TestChromeToggleStaysSilent(t *testing.T) {
	window := 20 * time.Millisecond
	r := newRig(t, window)

	require.NoError(t, r.sim.Run("mount-tree"))
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, r.sim.Run("chrome-toggle"))
	time.Sleep(5 * window)

	require.Zero(t, r.store.Len(), "chrome actions are suppressed")
	require.GreaterOrEqual(t, r.reg.Stats()[0].Total, uint64(2), "suppressed invocations still count")
	require.False(t, r.gate.Active(), "gate must reopen after the hold")
}

func TestTypingBurstCoalesces(t *testing.T) {
	r := newRig(t, 100*time.Millisecond)

	require.NoError(t, r.sim.Run("mount-tree"))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, r.sim.Run("typing-burst"))

	waitFor(t, func() bool { return r.store.Len() == 1 }, "burst never surfaced")
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, r.store.Len(), "one notification for the whole burst")
	n := r.store.Snapshot()[0]
	require.Equal(t, "SearchBox", n.Primary.Unit)
	require.Len(t, n.Batch, 4, "all keystrokes retained in the batch")
}

func TestScheduledScenarioRuns(t *testing.T) {
	r := newRig(t, 20*time.Millisecond)

	require.NoError(t, r.sim.Run("mount-tree"))
	time.Sleep(60 * time.Millisecond)

	r.sim.Apply(Config{
		Entries:      []Entry{{Name: "counter-click", Schedule: "* * * * * *"}}, // every second
		SuppressHold: 60 * time.Millisecond,
	})
	r.sim.Start()

	waitFor(t, func() bool { return r.reg.SequenceOf("Counter") >= 2 }, "scheduled scenario never ran")
}
