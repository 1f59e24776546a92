package bus

import (
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
)

// Broadcast publishes a delivery event. It lets the bus serve as the
// dispatcher's broadcaster.
func (b *Bus) Broadcast(event string, timestamp uint64) {
	kind := event
	switch event {
	case delivery.EventMessageSent:
		kind = KindMessageSent
	case delivery.EventMessageFailed:
		kind = KindMessageFailed
	}
	b.Publish(Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   MessageEvent{Timestamp: timestamp},
	})
}
