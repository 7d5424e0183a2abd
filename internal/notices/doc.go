// Package notices holds the queue of surfaced notifications for the
// presentation layer.
//
// The store is pure state: classification and batching happen upstream
// in the dispatcher. It owns every Notification it is handed; the
// dispatcher only appends. Consumers observe changes through the event
// bus ("notices." topics) and read the queue with Snapshot.
package notices
