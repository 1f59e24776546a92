package routing

import (
	"time"

	"github.com/diogocavaiar/session-android/internal/message"
)

// FallbackTTL applies whenever a caller supplies a non-positive TTL.
const FallbackTTL = 48 * time.Hour

// Category selects a TTL from the table.
type Category int

const (
	CategoryRegular Category = iota
	CategoryTyping
	CategoryReceipt
	CategorySessionRequest
	CategoryGroupControl
	CategorySync
)

func (c Category) String() string {
	switch c {
	case CategoryRegular:
		return "regular"
	case CategoryTyping:
		return "typing"
	case CategoryReceipt:
		return "receipt"
	case CategorySessionRequest:
		return "session_request"
	case CategoryGroupControl:
		return "group_control"
	case CategorySync:
		return "sync"
	default:
		return "unknown"
	}
}

// TTLTable maps message categories to storage-node retention.
type TTLTable struct {
	Regular        time.Duration
	Typing         time.Duration
	Receipt        time.Duration
	SessionRequest time.Duration
	GroupControl   time.Duration
}

// DefaultTTLTable returns the stock retention periods.
func DefaultTTLTable() TTLTable {
	return TTLTable{
		Regular:        48 * time.Hour,
		Typing:         20 * time.Second,
		Receipt:        24 * time.Hour,
		SessionRequest: 96 * time.Hour,
		GroupControl:   72 * time.Hour,
	}
}

// For returns the TTL of category c. Sync messages live as long as regular
// ones. Unset entries fall back to FallbackTTL.
func (t TTLTable) For(c Category) time.Duration {
	var d time.Duration
	switch c {
	case CategoryRegular, CategorySync:
		d = t.Regular
	case CategoryTyping:
		d = t.Typing
	case CategoryReceipt:
		d = t.Receipt
	case CategorySessionRequest:
		d = t.SessionRequest
	case CategoryGroupControl:
		d = t.GroupControl
	default:
		panic("routing: unknown ttl category")
	}
	if d <= 0 {
		return FallbackTTL
	}
	return d
}

// CategoryOf classifies content for TTL selection.
func CategoryOf(c message.Content) Category {
	switch m := c.(type) {
	case *message.TypingMessage:
		return CategoryTyping
	case *message.ReceiptMessage:
		return CategoryReceipt
	case message.SyncMessage:
		return CategorySync
	case *message.DataMessage:
		switch {
		case m.EndSession:
			return CategorySessionRequest
		case m.Group != nil && m.Group.Type != message.GroupDeliver:
			return CategoryGroupControl
		}
	}
	return CategoryRegular
}
