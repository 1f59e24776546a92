package message

import "io"

// Attachment is either an *AttachmentStream still to be uploaded or an
// *AttachmentPointer to already uploaded content.
type Attachment interface {
	isAttachment()
}

// AttachmentStream is local attachment data.
type AttachmentStream struct {
	Reader      io.Reader
	Length      int64
	ContentType string
	FileName    *string
	Preview     []byte
	Width       uint32
	Height      uint32
	VoiceNote   bool
	Caption     *string
}

func (*AttachmentStream) isAttachment() {}

// AttachmentPointer references uploaded attachment content. Pointers are
// created by the upload pipeline and embedded by value into envelopes.
type AttachmentPointer struct {
	ID          uint64
	ContentType string
	Key         []byte
	Size        *uint32
	Preview     []byte
	Width       uint32
	Height      uint32
	Digest      []byte
	FileName    *string
	VoiceNote   bool
	Caption     *string
	URL         string
}

func (*AttachmentPointer) isAttachment() {}
