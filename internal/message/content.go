// Package message defines the logical outbound messages handed to the sender.
//
// Every message kind is a closed sum: Content is implemented only by
// *DataMessage, *TypingMessage, *ReceiptMessage and the SyncMessage
// variants. Optional fields are pointers or nil slices so that "absent" is
// never conflated with a zero value.
package message

// Content is a logical message that the envelope builder can serialize.
type Content interface {
	isContent()
}

// Recipient identifies a destination by its public key.
type Recipient struct {
	PublicKey    string
	LinkedDevice bool
}

// NewRecipient returns a recipient for the given public key.
func NewRecipient(publicKey string) Recipient {
	return Recipient{PublicKey: publicKey}
}

// Equal reports whether both recipients address the same public key.
func (r Recipient) Equal(other Recipient) bool {
	return r.PublicKey == other.PublicKey
}

func (r Recipient) String() string {
	return r.PublicKey
}

// PublicChat is a server-hosted channel a thread can be bound to.
type PublicChat struct {
	Server      string
	Channel     int64
	DisplayName string
}

// DataMessage is a regular chat message.
type DataMessage struct {
	Timestamp        uint64
	Body             *string
	Attachments      []Attachment
	Group            *Group
	EndSession       bool
	ExpirationUpdate bool
	ProfileKeyUpdate bool
	DeviceUnlink     bool
	ExpiresInSeconds uint32
	ProfileKey       []byte
	Quote            *Quote
	SharedContacts   []SharedContact
	Previews         []Preview
	Sticker          *Sticker
	Profile          *Profile
	SyncTarget       *string
}

func (*DataMessage) isContent() {}

// HasVisibleContent reports whether the message renders as something other
// than a control update on the receiving side.
func (m *DataMessage) HasVisibleContent() bool {
	return (m.Body != nil && *m.Body != "") ||
		len(m.Attachments) > 0 ||
		m.Quote != nil ||
		len(m.SharedContacts) > 0 ||
		len(m.Previews) > 0 ||
		m.Sticker != nil
}

// IsSelfSend reports whether the message addresses the sender's own synced
// thread through a sync target override.
func (m *DataMessage) IsSelfSend() bool {
	return m.SyncTarget != nil && *m.SyncTarget != ""
}

// GroupType is the kind of a group context.
type GroupType int

const (
	GroupUnknown GroupType = iota
	GroupUpdate
	GroupDeliver
	GroupQuit
	GroupRequestInfo
)

// Group is the group context attached to a data message.
type Group struct {
	ID      []byte
	Type    GroupType
	Name    *string
	Members []string
	Admins  []string
	Avatar  Attachment
}

// Quote references an earlier message.
type Quote struct {
	ID          uint64
	Author      string
	Text        string
	Attachments []QuotedAttachment
}

// QuotedAttachment describes an attachment of the quoted message.
type QuotedAttachment struct {
	ContentType string
	FileName    *string
	Thumbnail   Attachment
}

// Preview is a link preview.
type Preview struct {
	URL   string
	Title string
	Image Attachment
}

// Sticker is a sticker message payload.
type Sticker struct {
	PackID    []byte
	PackKey   []byte
	StickerID uint32
	Data      Attachment
}

// Profile carries the sender's display information.
type Profile struct {
	DisplayName *string
	PictureURL  *string
}

// TypingAction is the state of a typing indicator.
type TypingAction int

const (
	TypingUnknown TypingAction = iota
	TypingStarted
	TypingStopped
)

// TypingMessage is a typing indicator.
type TypingMessage struct {
	Action    TypingAction
	Timestamp uint64
	GroupID   []byte
}

func (*TypingMessage) isContent() {}

// ReceiptType is the kind of a receipt.
type ReceiptType int

const (
	ReceiptUnknown ReceiptType = iota
	ReceiptDelivery
	ReceiptRead
)

// ReceiptMessage acknowledges one or more received messages.
type ReceiptMessage struct {
	Type       ReceiptType
	Timestamps []uint64
	When       uint64
}

func (*ReceiptMessage) isContent() {}
