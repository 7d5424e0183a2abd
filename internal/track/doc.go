// Package track classifies why a tracked UI unit re-executed and turns
// raw invocations into coalesced render events.
//
// One Registry owns one tracker per unit name. Identity is deliberately
// name-based, not instance-based: multiple live instances of a unit
// named "Counter" share one render counter. The Registry runs entirely
// on a sched.Loop; callers feed it through Record / RecordPass and read
// it through the mutex-guarded mirrors (Sequences, History, Stats).
//
// Two hazards shape the tracker's state machine:
//
//   - Re-entrant duplicate invocation: a hosting runtime may invoke the
//     same unit body twice per logical update. The first invocation sees
//     the real diff; the second sees none (the previous snapshot has
//     already advanced) and would misclassify as a cascade. The
//     committed-reason rule preserves the true cause.
//   - Self-inflicted feedback: surfacing an event mutates state that
//     consumers observe, which can re-invoke units as a cascade. While a
//     dispatch is in flight, pure-cascade invocations are dropped
//     outright so the pipeline never counts its own echo.
package track
