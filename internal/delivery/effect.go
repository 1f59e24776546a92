package delivery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Broadcast event names.
const (
	EventMessageSent   = "messageSent"
	EventMessageFailed = "messageFailed"
)

// EnvelopeType tags the key material a payload was encrypted with.
type EnvelopeType int32

const (
	EnvelopeCiphertext            EnvelopeType = 1
	EnvelopeUnidentifiedSender    EnvelopeType = 6
	EnvelopeClosedGroupCiphertext EnvelopeType = 7
)

func (t EnvelopeType) String() string {
	switch t {
	case EnvelopeCiphertext:
		return "ciphertext"
	case EnvelopeUnidentifiedSender:
		return "unidentified_sender"
	case EnvelopeClosedGroupCiphertext:
		return "closed_group_ciphertext"
	default:
		return "unknown"
	}
}

// MessageInfo is one encrypted message submitted to a recipient's swarm.
type MessageInfo struct {
	Type         EnvelopeType
	Timestamp    uint64
	SenderID     string
	SenderDevice uint32
	Content      []byte
	Recipient    string
	TTL          time.Duration
}

// Effect is a side effect requested by a dispatch: *Broadcast or *Notify.
type Effect interface {
	isEffect()
}

// Broadcast asks for an event to be broadcast to local listeners.
type Broadcast struct {
	Event     string
	Timestamp uint64
}

// Notify asks for the push-notification service to be told about a message.
type Notify struct {
	Info MessageInfo
}

func (*Broadcast) isEffect() {}
func (*Notify) isEffect()    {}

// Broadcaster delivers local events.
type Broadcaster interface {
	Broadcast(event string, timestamp uint64)
}

// Notifier is the push-notification service.
type Notifier interface {
	Notify(ctx context.Context, info MessageInfo) error
}

// Apply performs the effects in order. Notification failures are logged and
// do not affect the already decided result.
func Apply(ctx context.Context, effects []Effect, b Broadcaster, n Notifier, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, e := range effects {
		switch e := e.(type) {
		case *Broadcast:
			if b != nil {
				b.Broadcast(e.Event, e.Timestamp)
			}
		case *Notify:
			if n == nil {
				continue
			}
			if err := n.Notify(ctx, e.Info); err != nil {
				logger.Warn("push notification failed", zap.Error(err), zap.String("recipient", e.Info.Recipient))
			}
		}
	}
}
