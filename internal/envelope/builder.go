// Package envelope serializes logical messages into content envelopes and
// wraps encrypted payloads for storage nodes.
package envelope

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
)

// DefaultSyncPaddingSize is the length of the random padding blob carried
// by every sync message.
const DefaultSyncPaddingSize = 512

// Builder serializes messages. It is deterministic apart from the sync
// padding drawn from its random source and timestamps taken from its clock
// when a message has none.
type Builder struct {
	rand        io.Reader
	now         func() time.Time
	paddingSize int
}

// Option configures a Builder.
type Option func(*Builder)

// WithRand sets the source of sync padding bytes.
func WithRand(r io.Reader) Option {
	return func(b *Builder) { b.rand = r }
}

// WithClock sets the clock used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithSyncPaddingSize sets the sync padding length.
func WithSyncPaddingSize(n int) Option {
	return func(b *Builder) { b.paddingSize = n }
}

// NewBuilder returns a builder using crypto/rand and the wall clock.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		rand:        rand.Reader,
		now:         time.Now,
		paddingSize: DefaultSyncPaddingSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build serializes c into content bytes.
func (b *Builder) Build(c message.Content) ([]byte, error) {
	var (
		w   writer
		err error
	)
	switch m := c.(type) {
	case *message.DataMessage:
		var data []byte
		if data, err = b.dataMessage(m); err == nil {
			w.bytes(contentDataMessage, data)
		}
	case *message.TypingMessage:
		var typing []byte
		if typing, err = b.typingMessage(m); err == nil {
			w.bytes(contentTypingMessage, typing)
		}
	case *message.ReceiptMessage:
		var receipt []byte
		if receipt, err = receiptMessage(m); err == nil {
			w.bytes(contentReceiptMessage, receipt)
		}
	case message.SyncMessage:
		var sync []byte
		if sync, err = b.syncMessage(m); err == nil {
			w.bytes(contentSyncMessage, sync)
		}
	case nil:
		return nil, delivery.Encodingf("no content")
	default:
		return nil, delivery.Encodingf("unsupported content %T", c)
	}
	if err != nil {
		return nil, err
	}
	return w.b, nil
}

func (b *Builder) timestamp(ts uint64) uint64 {
	if ts != 0 {
		return ts
	}
	return uint64(b.now().UnixMilli())
}

func (b *Builder) dataMessage(m *message.DataMessage) ([]byte, error) {
	var w writer

	w.optStr(dataBody, m.Body)

	for _, a := range m.Attachments {
		p, err := attachmentPointer(a)
		if err != nil {
			return nil, err
		}
		w.bytes(dataAttachments, p)
	}

	if m.Group != nil {
		g, err := groupContext(m.Group)
		if err != nil {
			return nil, err
		}
		w.bytes(dataGroup, g)
	}

	if flags, ok := dataFlagsOf(m); ok {
		w.varint(dataFlags, flags)
	}

	if m.ExpiresInSeconds > 0 {
		w.varint(dataExpireTimer, uint64(m.ExpiresInSeconds))
	}

	w.optBytes(dataProfileKey, m.ProfileKey)
	w.varint(dataTimestamp, b.timestamp(m.Timestamp))

	if m.Quote != nil {
		q, err := quote(m.Quote)
		if err != nil {
			return nil, err
		}
		w.bytes(dataQuote, q)
	}

	for _, c := range m.SharedContacts {
		sc, err := sharedContact(c)
		if err != nil {
			return nil, err
		}
		w.bytes(dataContact, sc)
	}

	for _, p := range m.Previews {
		pv, err := preview(p)
		if err != nil {
			return nil, err
		}
		w.bytes(dataPreview, pv)
	}

	if m.Sticker != nil {
		s, err := sticker(m.Sticker)
		if err != nil {
			return nil, err
		}
		w.bytes(dataSticker, s)
	}

	if m.Profile != nil {
		var pw writer
		pw.optStr(profileDisplayName, m.Profile.DisplayName)
		pw.optStr(profilePicture, m.Profile.PictureURL)
		w.bytes(dataProfile, pw.b)
	}

	w.optStr(dataSyncTarget, m.SyncTarget)

	return w.b, nil
}

func dataFlagsOf(m *message.DataMessage) (uint64, bool) {
	var (
		flags uint64
		set   bool
	)
	if m.EndSession {
		flags, set = flagEndSession, true
	}
	if m.ExpirationUpdate {
		flags, set = flagExpirationTimerUpdate, true
	}
	if m.ProfileKeyUpdate {
		flags, set = flagProfileKeyUpdate, true
	}
	if m.DeviceUnlink {
		flags, set = flagDeviceUnlinkingRequest, true
	}
	return flags, set
}

func attachmentPointer(a message.Attachment) ([]byte, error) {
	switch a := a.(type) {
	case *message.AttachmentPointer:
		return pointerBytes(a), nil
	case *message.AttachmentStream:
		return nil, delivery.Encodingf("attachment stream %q was not uploaded", a.ContentType)
	default:
		return nil, delivery.Encodingf("unsupported attachment %T", a)
	}
}

func pointerBytes(p *message.AttachmentPointer) []byte {
	var w writer
	w.fixed64(pointerID, p.ID)
	w.str(pointerContentType, p.ContentType)
	w.bytes(pointerKey, p.Key)
	if p.Size != nil {
		w.varint(pointerSize, uint64(*p.Size))
	}
	w.optBytes(pointerThumbnail, p.Preview)
	w.optBytes(pointerDigest, p.Digest)
	w.optStr(pointerFileName, p.FileName)
	if p.VoiceNote {
		w.varint(pointerFlags, pointerFlagVoiceMessage)
	}
	if p.Width > 0 {
		w.varint(pointerWidth, uint64(p.Width))
	}
	if p.Height > 0 {
		w.varint(pointerHeight, uint64(p.Height))
	}
	w.optStr(pointerCaption, p.Caption)
	w.str(pointerURL, p.URL)
	return w.b
}

func groupContext(g *message.Group) ([]byte, error) {
	var w writer
	w.bytes(groupID, g.ID)

	if g.Type == message.GroupDeliver {
		w.varint(groupType, groupTypeDeliver)
		return w.b, nil
	}

	switch g.Type {
	case message.GroupUpdate:
		w.varint(groupType, groupTypeUpdate)
	case message.GroupQuit:
		w.varint(groupType, groupTypeQuit)
	case message.GroupRequestInfo:
		w.varint(groupType, groupTypeRequestInfo)
	default:
		panic(fmt.Sprintf("envelope: unknown group type %d", g.Type))
	}

	w.optStr(groupName, g.Name)
	w.strs(groupMembers, g.Members)
	w.strs(groupAdmins, g.Admins)

	if g.Avatar != nil {
		p, err := attachmentPointer(g.Avatar)
		if err != nil {
			return nil, err
		}
		w.bytes(groupAvatar, p)
	}
	return w.b, nil
}

func quote(q *message.Quote) ([]byte, error) {
	var w writer
	w.varint(quoteID, q.ID)
	w.str(quoteAuthor, q.Author)
	w.str(quoteText, q.Text)

	for _, qa := range q.Attachments {
		var aw writer
		aw.str(quotedContentType, qa.ContentType)
		aw.optStr(quotedFileName, qa.FileName)
		if qa.Thumbnail != nil {
			p, err := attachmentPointer(qa.Thumbnail)
			if err != nil {
				return nil, err
			}
			aw.bytes(quotedThumbnail, p)
		}
		w.bytes(quoteAttachments, aw.b)
	}
	return w.b, nil
}

func preview(p message.Preview) ([]byte, error) {
	var w writer
	w.str(previewURL, p.URL)
	w.str(previewTitle, p.Title)
	if p.Image != nil {
		img, err := attachmentPointer(p.Image)
		if err != nil {
			return nil, err
		}
		w.bytes(previewImage, img)
	}
	return w.b, nil
}

func sticker(s *message.Sticker) ([]byte, error) {
	var w writer
	w.bytes(stickerPackID, s.PackID)
	w.bytes(stickerPackKey, s.PackKey)
	w.varint(stickerID, uint64(s.StickerID))
	if s.Data == nil {
		return nil, delivery.Encodingf("sticker without data")
	}
	data, err := attachmentPointer(s.Data)
	if err != nil {
		return nil, err
	}
	w.bytes(stickerData, data)
	return w.b, nil
}

func (b *Builder) typingMessage(m *message.TypingMessage) ([]byte, error) {
	var w writer
	w.varint(typingTimestamp, b.timestamp(m.Timestamp))

	switch m.Action {
	case message.TypingStarted:
		w.varint(typingAction, typingActionStarted)
	case message.TypingStopped:
		w.varint(typingAction, typingActionStopped)
	default:
		return nil, delivery.Encodingf("unknown typing indicator %d", m.Action)
	}

	w.optBytes(typingGroupID, m.GroupID)
	return w.b, nil
}

func receiptMessage(m *message.ReceiptMessage) ([]byte, error) {
	var w writer
	switch m.Type {
	case message.ReceiptDelivery:
		w.varint(receiptType, receiptTypeDelivery)
	case message.ReceiptRead:
		w.varint(receiptType, receiptTypeRead)
	default:
		return nil, delivery.Encodingf("unknown receipt type %d", m.Type)
	}
	for _, ts := range m.Timestamps {
		w.varint(receiptTimestamp, ts)
	}
	return w.b, nil
}
