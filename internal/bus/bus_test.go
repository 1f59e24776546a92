package bus

import (
	"testing"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: "session.status_changed", Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != "session.status_changed" {
			t.Errorf("got kind %q, want session.status_changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("pipe.", 10)
	defer unsub()

	b.Publish(Event{Kind: "session.status_changed"})
	b.Publish(Event{Kind: "pipe.connected"})

	select {
	case evt := <-ch:
		if evt.Kind != "pipe.connected" {
			t.Errorf("got kind %q, want pipe.connected", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure session event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()

	b.Publish(Event{Kind: "session.status_changed"})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestBroadcastMapsDeliveryEvents(t *testing.T) {
	tests := []struct {
		event string
		want  string
	}{
		{delivery.EventMessageSent, KindMessageSent},
		{delivery.EventMessageFailed, KindMessageFailed},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			b := New()
			ch, unsub := b.Subscribe("message.", 1)
			defer unsub()

			b.Broadcast(tt.event, 1000)

			select {
			case evt := <-ch:
				if evt.Kind != tt.want {
					t.Errorf("kind = %q, want %q", evt.Kind, tt.want)
				}
				payload, ok := evt.Payload.(MessageEvent)
				if !ok || payload.Timestamp != 1000 {
					t.Errorf("payload = %#v, want timestamp 1000", evt.Payload)
				}
			case <-time.After(time.Second):
				t.Fatal("timeout waiting for event")
			}
		})
	}
}
