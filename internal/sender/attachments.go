package sender

import (
	"context"
	"fmt"
	"slices"

	"github.com/diogocavaiar/session-android/internal/message"
)

// resolveStreams returns a copy of m in which every attachment stream is
// uploaded and replaced by its pointer. m itself is not modified.
func (s *Sender) resolveStreams(ctx context.Context, m *message.DataMessage, recipient *message.Recipient) (*message.DataMessage, error) {
	out := *m

	upload := func(a message.Attachment, usePadding bool) (message.Attachment, error) {
		stream, ok := a.(*message.AttachmentStream)
		if !ok {
			return a, nil
		}
		p, err := s.Uploader.Upload(ctx, stream, usePadding, recipient)
		if err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		return p, nil
	}

	var err error
	if len(m.Attachments) > 0 {
		out.Attachments = make([]message.Attachment, len(m.Attachments))
		for i, a := range m.Attachments {
			if out.Attachments[i], err = upload(a, false); err != nil {
				return nil, err
			}
		}
	}

	if m.Group != nil && m.Group.Avatar != nil {
		g := *m.Group
		if g.Avatar, err = upload(g.Avatar, false); err != nil {
			return nil, err
		}
		out.Group = &g
	}

	if m.Quote != nil && len(m.Quote.Attachments) > 0 {
		q := *m.Quote
		q.Attachments = slices.Clone(q.Attachments)
		for i := range q.Attachments {
			if q.Attachments[i].Thumbnail, err = upload(q.Attachments[i].Thumbnail, false); err != nil {
				return nil, err
			}
		}
		out.Quote = &q
	}

	if len(m.Previews) > 0 {
		out.Previews = slices.Clone(m.Previews)
		for i := range out.Previews {
			if out.Previews[i].Image, err = upload(out.Previews[i].Image, false); err != nil {
				return nil, err
			}
		}
	}

	if m.Sticker != nil {
		st := *m.Sticker
		if st.Data, err = upload(st.Data, true); err != nil {
			return nil, err
		}
		out.Sticker = &st
	}

	if len(m.SharedContacts) > 0 {
		out.SharedContacts = slices.Clone(m.SharedContacts)
		for i := range out.SharedContacts {
			avatar := out.SharedContacts[i].Avatar
			if avatar == nil {
				continue
			}
			a := *avatar
			if a.Attachment, err = upload(a.Attachment, false); err != nil {
				return nil, err
			}
			out.SharedContacts[i].Avatar = &a
		}
	}

	return &out, nil
}
