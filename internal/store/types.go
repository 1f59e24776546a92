package store

// Message is a locally stored message. ServerID is the id a public channel
// assigned to it, or zero.
type Message struct {
	ID        int64
	ThreadID  int64
	Author    string
	Timestamp int64
	Body      string
	ServerID  int64
}

// Profile is the display information of an account.
type Profile struct {
	PublicKey   string
	DisplayName *string
	PictureURL  *string
}

// OutboxEntry represents a pending outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	Recipient    string
	Body         string
	Status       string // queued, sending, sent, failed
	ResultKind   string
	ErrorMessage string
	MessageID    int64
}

// Reset states of a session.
const (
	ResetNone       = "none"
	ResetInProgress = "in_progress"
)
