// Package dispatch batches emitted render events into notifications.
//
// One shared buffer and one debounce timer serve all units: every
// arrival re-arms the full window, so an entire cascade triggered by one
// user action lands in a single notification. Within a batch the
// headline (primary) event is chosen by reason priority, not arrival
// order, while the batch itself keeps arrival order for inspection.
package dispatch

import (
	"time"

	"github.com/google/uuid"

	"rendertrace/internal/notices"
	"rendertrace/internal/sched"
	"rendertrace/internal/track"
	"rendertrace/pkg/logx"
)

// DefaultWindow absorbs a full cascade of dependent re-executions from
// one user action while staying perceptibly instant.
const DefaultWindow = 300 * time.Millisecond

type Config struct {
	// Window is the debounce interval between the last arrival and the
	// notification being finalized.
	Window time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// Dispatcher implements track.Sink. All fields are loop-confined; the
// registry delivers events on the loop and config changes are posted.
type Dispatcher struct {
	loop  *sched.Loop
	gate  *Gate
	store *notices.Store
	log   logx.Logger

	window time.Duration
	buf    []track.Event // arrival order
	timer  *sched.Timer
	// deadline invalidates queued flushes that lost the debounce race: a
	// timer may fire and post its flush just as a new arrival re-arms it.
	// A flush arriving before the deadline belongs to a superseded window.
	deadline time.Time
}

func New(loop *sched.Loop, gate *Gate, store *notices.Store, cfg Config, log logx.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		loop:   loop,
		gate:   gate,
		store:  store,
		log:    log,
		window: cfg.Window,
	}
	// Entering suppression drops whatever is pending right away.
	gate.onBegin = func() {
		loop.Post(func() { d.dropPending("suppression began") })
	}
	return d
}

// Apply swaps tunables at runtime. A pending window keeps its old
// duration; the next arrival uses the new one.
func (d *Dispatcher) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	d.loop.Post(func() { d.window = cfg.Window })
}

// OnEvent receives one emitted event. Runs on the loop.
func (d *Dispatcher) OnEvent(ev track.Event) {
	// Mounting is not a re-render worth alerting on.
	if ev.Reason == track.ReasonInitial {
		return
	}
	if d.gate.Active() {
		d.dropPending("suppressed at receipt")
		return
	}

	d.buf = append(d.buf, ev)
	d.deadline = time.Now().Add(d.window)
	if d.timer == nil {
		d.timer = d.loop.After(d.window, d.flush)
	} else {
		d.timer.Reset(d.window)
	}
}

func (d *Dispatcher) dropPending(why string) {
	if len(d.buf) == 0 {
		return
	}
	d.log.Debug("pending events dropped",
		logx.Int("count", len(d.buf)),
		logx.String("why", why),
	)
	d.buf = nil
	d.timer.Stop()
}

// flush closes one batching window. Runs on the loop.
func (d *Dispatcher) flush() {
	if time.Now().Before(d.deadline) {
		// A later arrival re-armed the timer; its fire is still coming.
		return
	}
	buf := d.buf
	d.buf = nil
	if len(buf) == 0 {
		return
	}

	// Suppression may have begun after buffering but before the window
	// closed; the check at receipt time is not enough.
	if d.gate.Active() {
		d.log.Debug("batch dropped at flush", logx.Int("count", len(buf)))
		return
	}

	n := notices.Notification{
		ID:        uuid.NewString(),
		Primary:   buf[0],
		CreatedAt: time.Now(),
	}
	if len(buf) >= 2 {
		n.Batch = append([]track.Event(nil), buf...)
		for _, ev := range buf[1:] {
			if ev.Reason.Priority() < n.Primary.Reason.Priority() {
				n.Primary = ev
			}
		}
	}

	d.store.Append(n)
	d.log.Debug("notification surfaced",
		logx.String("unit", n.Primary.Unit),
		logx.String("reason", n.Primary.Reason.String()),
		logx.Int("batched", len(buf)),
	)
}
