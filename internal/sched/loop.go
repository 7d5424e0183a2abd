package sched

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"rendertrace/pkg/logx"
)

const defaultQueueSize = 256

// Loop is a single-goroutine task queue with microtask and timer support.
//
// Post and After are safe for concurrent use from any goroutine. Defer is
// intended to be called from code already running on the loop; calling it
// from outside simply schedules the fn into the current/next drain.
type Loop struct {
	log logx.Logger

	tasks chan func()

	// micro is drained to empty after every task. Guarded by mu because
	// Defer may technically be called from off-loop callers.
	mu    sync.Mutex
	micro []func()

	ticks atomic.Uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func New(queueSize int, log logx.Logger) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		log:    log,
		tasks:  make(chan func(), queueSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start spawns the loop goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Stop shuts the loop down and waits for the loop goroutine to exit,
// best-effort until ctx expires. Queued tasks that have not started are
// discarded.
func (l *Loop) Stop(ctx context.Context) {
	l.stopOnce.Do(func() { close(l.stopCh) })
	select {
	case <-l.done:
	case <-ctx.Done():
	}
}

// Post enqueues fn as its own task (macrotask). It blocks only when the
// queue is full and never blocks after Stop.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.stopCh:
		return
	default:
	}
	select {
	case l.tasks <- fn:
	case <-l.stopCh:
	}
}

// Defer schedules fn to run after the current synchronous work completes,
// before the next posted task. Microtasks may defer further microtasks;
// the drain continues until the queue is empty.
func (l *Loop) Defer(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.micro = append(l.micro, fn)
	l.mu.Unlock()
}

// After runs fn on the loop after d has elapsed. The returned Timer can
// be stopped or reset; Reset re-arms the full duration (debounce).
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	if fn == nil {
		return &Timer{}
	}
	return &Timer{t: time.AfterFunc(d, func() { l.Post(fn) })}
}

// Barrier posts an empty task and blocks until the loop has executed it
// and drained its microtasks. Returns ctx.Err() if the loop is stopped
// or ctx expires first.
func (l *Loop) Barrier(ctx context.Context) error {
	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-l.stopCh:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ticks reports how many tasks the loop has completed. Observability only.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

func (l *Loop) run() {
	defer close(l.done)
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-l.stopCh:
			return
		default:
		}

		select {
		case <-l.stopCh:
			return
		case fn := <-l.tasks:
			l.exec(fn)
			l.drainMicro()
			l.ticks.Add(1)
		}
	}
}

func (l *Loop) drainMicro() {
	for {
		l.mu.Lock()
		if len(l.micro) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.micro[0]
		l.micro = l.micro[1:]
		l.mu.Unlock()
		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic in loop task",
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn()
}
