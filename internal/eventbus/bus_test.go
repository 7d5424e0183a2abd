package eventbus

import (
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishFanout(t *testing.T) {
	b := New()
	ch1, un1 := b.Subscribe(4)
	ch2, un2 := b.Subscribe(4)
	defer un1()
	defer un2()

	b.Publish(Event{Type: "notices.appended", Data: 1})

	if e := recv(t, ch1); e.Type != "notices.appended" {
		t.Fatalf("unexpected type %q", e.Type)
	}
	if e := recv(t, ch2); e.Data != 1 {
		t.Fatalf("unexpected data %v", e.Data)
	}
}

func TestTopicFilter(t *testing.T) {
	b := New()
	exact, unExact := b.SubscribeTopics(4, "track.sequence")
	prefix, unPrefix := b.SubscribeTopics(4, "notices.")
	defer unExact()
	defer unPrefix()

	b.Publish(Event{Type: "notices.appended"})
	b.Publish(Event{Type: "notices.removed"})
	b.Publish(Event{Type: "track.sequence"})

	if e := recv(t, exact); e.Type != "track.sequence" {
		t.Fatalf("exact subscriber got %q", e.Type)
	}
	if e := recv(t, prefix); e.Type != "notices.appended" {
		t.Fatalf("prefix subscriber got %q", e.Type)
	}
	if e := recv(t, prefix); e.Type != "notices.removed" {
		t.Fatalf("prefix subscriber got %q", e.Type)
	}
	select {
	case e := <-prefix:
		t.Fatalf("prefix subscriber should not see %q", e.Type)
	default:
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, un := b.Subscribe(1)
	defer un()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"}) // dropped, buffer full

	if e := recv(t, ch); e.Type != "a" {
		t.Fatalf("got %q", e.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("expected drop, got %q", e.Type)
	default:
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := New()
	_, un := b.Subscribe(1)
	un()
	un() // double unsubscribe is a no-op

	// Publishing after close must not panic.
	b.Publish(Event{Type: "x"})
}

func TestPublishStampsTime(t *testing.T) {
	b := New()
	ch, un := b.Subscribe(1)
	defer un()

	b.Publish(Event{Type: "x"})
	if e := recv(t, ch); e.Time.IsZero() {
		t.Fatal("expected Publish to stamp Time")
	}
}
