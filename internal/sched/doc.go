// Package sched provides the single-threaded cooperative run loop the
// tracking pipeline lives on.
//
// All tracker, dispatcher and store mutation is confined to one loop
// goroutine, which removes the need for locks around the pipeline's own
// state. Two deferral primitives are load-bearing:
//
//   - Defer: run after the current synchronous work, before the next
//     posted task (microtask). Used to coalesce multiple invocations of
//     one unit into a single emission per tick.
//   - After: run after a fixed real-time delay (timer). Used for the
//     dispatcher's debounce window and notification expiry.
//
// A "tick" is one posted task plus the microtasks it (transitively)
// defers. Ordering within the loop is FIFO for tasks and for microtasks.
package sched
