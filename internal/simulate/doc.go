// Package simulate stands in for the excluded presentation layer.
//
// It feeds the tracking pipeline the way an instrumented component tree
// would: whole render passes through Registry.RecordPass, including the
// double-invocations and parent-to-child cascades a real UI runtime
// produces. Scenarios are built in and referenced from config by name;
// an entry with a cron schedule re-runs, one without runs once at start.
package simulate
