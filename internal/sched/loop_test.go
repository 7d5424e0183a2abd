package sched

import (
	"context"
	"testing"
	"time"

	"rendertrace/pkg/logx"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	l := New(0, logx.Nop())
	l.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		l.Stop(ctx)
	})
	return l
}

func TestPostOrdering(t *testing.T) {
	l := newTestLoop(t)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Barrier(context.Background()); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", got)
		}
	}
}

func TestDeferRunsBeforeNextTask(t *testing.T) {
	l := newTestLoop(t)

	var got []string
	l.Post(func() {
		got = append(got, "task1")
		l.Defer(func() { got = append(got, "micro1") })
		l.Defer(func() {
			got = append(got, "micro2")
			// nested microtask still drains within the same tick
			l.Defer(func() { got = append(got, "micro3") })
		})
	})
	l.Post(func() { got = append(got, "task2") })
	if err := l.Barrier(context.Background()); err != nil {
		t.Fatalf("barrier: %v", err)
	}

	want := []string{"task1", "micro1", "micro2", "micro3", "task2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestAfterFiresOnLoop(t *testing.T) {
	l := newTestLoop(t)

	fired := make(chan struct{})
	l.After(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimerStop(t *testing.T) {
	l := newTestLoop(t)

	fired := false
	tm := l.After(30*time.Millisecond, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("expected Stop to disarm a pending timer")
	}
	time.Sleep(60 * time.Millisecond)
	if err := l.Barrier(context.Background()); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if fired {
		t.Fatal("stopped timer still fired")
	}
}

func TestTimerResetRearms(t *testing.T) {
	l := newTestLoop(t)

	fired := make(chan struct{})
	tm := l.After(time.Hour, func() { close(fired) })
	tm.Reset(10 * time.Millisecond)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reset timer never fired")
	}
}

func TestTimerResetAfterStop(t *testing.T) {
	l := newTestLoop(t)

	fired := make(chan struct{})
	tm := l.After(time.Hour, func() { close(fired) })
	tm.Stop()
	tm.Reset(10 * time.Millisecond)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("stopped then reset timer never fired")
	}
}

func TestPanicInTaskDoesNotKillLoop(t *testing.T) {
	l := newTestLoop(t)

	l.Post(func() { panic("boom") })
	ran := false
	l.Post(func() { ran = true })
	if err := l.Barrier(context.Background()); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if !ran {
		t.Fatal("loop stopped processing after a panicking task")
	}
}

func TestStopDiscardsQueuedWork(t *testing.T) {
	l := New(0, logx.Nop())
	l.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.Stop(ctx)

	// Post after stop must not block or panic.
	l.Post(func() {})
	if err := l.Barrier(ctx); err == nil {
		t.Fatal("expected barrier to fail on a stopped loop")
	}
}
