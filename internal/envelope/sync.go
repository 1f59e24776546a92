package envelope

import (
	"fmt"
	"io"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
)

func (b *Builder) syncMessage(m message.SyncMessage) ([]byte, error) {
	var (
		payload []byte
		field   = syncSent
	)

	switch m := m.(type) {
	case *message.SyncContacts:
		var cw writer
		cw.bytes(blobData, m.Data)
		cw.boolean(blobComplete, m.Complete)
		field, payload = syncContacts, cw.b
	case *message.SyncGroups:
		var gw writer
		gw.bytes(blobData, m.Data)
		field, payload = syncGroups, gw.b
	case *message.SyncOpenGroups:
		if len(m.Groups) == 0 {
			return nil, delivery.Encodingf("empty open group sync")
		}
		var rw writer
		for _, g := range m.Groups {
			var ow writer
			ow.str(openGroupURL, g.Server)
			ow.varint(openGroupChannel, uint64(g.Channel))
			rw.bytes(syncOpenGroups, ow.b)
		}
		return b.syncWithRepeated(rw.b)
	case *message.SyncSent:
		return b.sentFromTranscript(m)
	case *message.SyncRead:
		if len(m.Reads) == 0 {
			return nil, delivery.Encodingf("empty read sync")
		}
		var rw writer
		for _, r := range m.Reads {
			var w writer
			w.str(readSender, r.Sender)
			w.varint(readTimestamp, r.Timestamp)
			rw.bytes(syncRead, w.b)
		}
		return b.syncWithRepeated(rw.b)
	case *message.SyncBlocked:
		var bw writer
		bw.strs(blockedNumbers, m.Numbers)
		for _, id := range m.GroupIDs {
			bw.bytes(blockedGroupIDs, id)
		}
		field, payload = syncBlocked, bw.b
	case *message.SyncConfiguration:
		var cw writer
		cw.optBool(configReadReceipts, m.ReadReceipts)
		cw.optBool(configUnidentifiedDeliveryIndicators, m.UnidentifiedDeliveryIndicators)
		cw.optBool(configTypingIndicators, m.TypingIndicators)
		cw.optBool(configLinkPreviews, m.LinkPreviews)
		field, payload = syncConfiguration, cw.b
	case *message.SyncStickerPackOperations:
		if len(m.Operations) == 0 {
			return nil, delivery.Encodingf("empty sticker pack sync")
		}
		var rw writer
		for _, op := range m.Operations {
			rw.bytes(syncStickerPackOperation, stickerPackOperation(op))
		}
		return b.syncWithRepeated(rw.b)
	case *message.SyncVerified:
		return nil, delivery.Encodingf("verified sync messages are not sent")
	default:
		return nil, delivery.Encodingf("unsupported sync message %T", m)
	}

	w, err := b.paddedSync()
	if err != nil {
		return nil, err
	}
	w.bytes(field, payload)
	return w.b, nil
}

// syncWithRepeated appends already tagged repeated entries after the padding.
func (b *Builder) syncWithRepeated(entries []byte) ([]byte, error) {
	w, err := b.paddedSync()
	if err != nil {
		return nil, err
	}
	w.b = append(w.b, entries...)
	return w.b, nil
}

// paddedSync starts a sync message with its random padding blob. The blob
// is always written, even when the padding size is zero.
func (b *Builder) paddedSync() (writer, error) {
	padding := make([]byte, b.paddingSize)
	if _, err := io.ReadFull(b.rand, padding); err != nil {
		return writer{}, fmt.Errorf("sync padding: %w", err)
	}
	var w writer
	w.bytes(syncPadding, padding)
	return w, nil
}

func stickerPackOperation(op message.StickerPackOperation) []byte {
	var w writer
	w.optBytes(stickerOpPackID, op.PackID)
	w.optBytes(stickerOpPackKey, op.PackKey)
	if op.Type != nil {
		switch *op.Type {
		case message.StickerPackInstall:
			w.varint(stickerOpType, stickerOpInstall)
		case message.StickerPackRemove:
			w.varint(stickerOpType, stickerOpRemove)
		default:
			panic(fmt.Sprintf("envelope: unknown sticker pack operation %d", *op.Type))
		}
	}
	return w.b
}

func (b *Builder) sentFromTranscript(m *message.SyncSent) ([]byte, error) {
	if m.Destination == nil || m.Message == nil {
		return nil, delivery.Encodingf("sent transcript needs a destination and a message")
	}
	content, err := b.Build(m.Message)
	if err != nil {
		return nil, err
	}
	results := []delivery.Result{
		delivery.Succeeded(message.NewRecipient(*m.Destination), m.Unidentified, true),
	}
	return b.sentSync(content, m.Destination, m.Timestamp, results)
}

// BuildSentTranscript wraps already built content into a "sent" sync
// message for the sender's linked devices. Successful results contribute
// their unidentified-delivery status.
func (b *Builder) BuildSentTranscript(content []byte, destination *string, timestamp uint64, results []delivery.Result) ([]byte, error) {
	sync, err := b.sentSync(content, destination, timestamp, results)
	if err != nil {
		return nil, err
	}
	var w writer
	w.bytes(contentSyncMessage, sync)
	return w.b, nil
}

func (b *Builder) sentSync(content []byte, destination *string, timestamp uint64, results []delivery.Result) ([]byte, error) {
	data, err := rawDataMessage(content)
	if err != nil {
		return nil, err
	}
	expireTimer, err := expireTimerOf(data)
	if err != nil {
		return nil, err
	}

	var sw writer
	sw.optStr(sentDestination, destination)
	sw.varint(sentTimestamp, timestamp)
	sw.bytes(sentMessage, data)
	if expireTimer > 0 {
		sw.varint(sentExpirationStartTimestamp, uint64(b.now().UnixMilli()))
	}
	for _, r := range results {
		s, ok := r.Success()
		if !ok {
			continue
		}
		var st writer
		st.str(statusDestination, r.Recipient.PublicKey)
		st.boolean(statusUnidentified, s.Unidentified)
		sw.bytes(sentUnidentifiedStatus, st.b)
	}

	w, err := b.paddedSync()
	if err != nil {
		return nil, err
	}
	w.bytes(syncSent, sw.b)
	return w.b, nil
}
