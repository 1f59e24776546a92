package message

// SyncMessage is a message replicated to the sender's own linked devices.
// Exactly one variant is set by construction.
type SyncMessage interface {
	Content
	isSync()
}

// SyncContacts carries a serialized contact list.
type SyncContacts struct {
	Data     []byte
	Complete bool
}

// SyncGroups carries a serialized group list.
type SyncGroups struct {
	Data []byte
}

// SyncOpenGroups lists the public chats the account has joined.
type SyncOpenGroups struct {
	Groups []PublicChat
}

// SyncSent is the transcript of a message sent from this device.
// Unidentified records whether the original send used unidentified access.
type SyncSent struct {
	Destination  *string
	Timestamp    uint64
	Message      *DataMessage
	Unidentified bool
}

// ReadMessage marks one message as read.
type ReadMessage struct {
	Sender    string
	Timestamp uint64
}

// SyncRead carries read markers.
type SyncRead struct {
	Reads []ReadMessage
}

// SyncBlocked carries the block list.
type SyncBlocked struct {
	Numbers  []string
	GroupIDs [][]byte
}

// SyncConfiguration carries user preferences. Each toggle is optional.
type SyncConfiguration struct {
	ReadReceipts                   *bool
	UnidentifiedDeliveryIndicators *bool
	TypingIndicators               *bool
	LinkPreviews                   *bool
}

// StickerPackOperationType is INSTALL or REMOVE. The zero value is not valid.
type StickerPackOperationType int

const (
	StickerPackInstall StickerPackOperationType = iota + 1
	StickerPackRemove
)

// StickerPackOperation installs or removes a sticker pack.
type StickerPackOperation struct {
	PackID  []byte
	PackKey []byte
	Type    *StickerPackOperationType
}

// SyncStickerPackOperations carries sticker pack changes.
type SyncStickerPackOperations struct {
	Operations []StickerPackOperation
}

// SyncVerified carries an identity verification state. It is never sent.
type SyncVerified struct {
	Destination string
	IdentityKey []byte
	Verified    bool
}

func (*SyncContacts) isContent()              {}
func (*SyncGroups) isContent()                {}
func (*SyncOpenGroups) isContent()            {}
func (*SyncSent) isContent()                  {}
func (*SyncRead) isContent()                  {}
func (*SyncBlocked) isContent()               {}
func (*SyncConfiguration) isContent()         {}
func (*SyncStickerPackOperations) isContent() {}
func (*SyncVerified) isContent()              {}

func (*SyncContacts) isSync()              {}
func (*SyncGroups) isSync()                {}
func (*SyncOpenGroups) isSync()            {}
func (*SyncSent) isSync()                  {}
func (*SyncRead) isSync()                  {}
func (*SyncBlocked) isSync()               {}
func (*SyncConfiguration) isSync()         {}
func (*SyncStickerPackOperations) isSync() {}
func (*SyncVerified) isSync()              {}
