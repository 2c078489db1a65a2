package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged, Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusChanged)
		}
		if evt.ID == "" {
			t.Error("event ID was not assigned")
		}
		if evt.Timestamp.IsZero() {
			t.Error("event timestamp was not assigned")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Publish(Event{Kind: KindReady})
	b.Publish(Event{Kind: KindReady})
	b.Publish(Event{ID: "fixed", Kind: KindReady})

	first, second, third := <-ch, <-ch, <-ch
	if first.ID == second.ID {
		t.Errorf("duplicate event ID %q", first.ID)
	}
	if third.ID != "fixed" {
		t.Errorf("ID = %q, want the publisher's ID kept", third.ID)
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged})
	b.Publish(Event{Kind: KindMessageReceived})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageReceived {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageReceived)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure session event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	b.Publish(Event{Kind: KindStatusChanged})

	if evt, ok := <-ch; ok {
		t.Errorf("received event after unsubscribe: %v", evt)
	}
}

func TestFullSubscriberDropsWithoutBlocking(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe("message.", 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for range 5 {
			b.Publish(Event{Kind: KindMessageCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := b.Dropped(); got != 4 {
		t.Errorf("Dropped() = %d, want 4", got)
	}
}
