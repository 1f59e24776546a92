package bus

import "time"

// Message event kinds published for delivery outcomes.
const (
	KindMessageSent   = "message.sent"
	KindMessageFailed = "message.failed"
)

// Event is one notification on the bus. Kind is dot-namespaced, e.g.
// "message.sent" or "pipe.status_changed".
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// MessageEvent is the payload of message.sent and message.failed events.
type MessageEvent struct {
	Timestamp uint64
}
