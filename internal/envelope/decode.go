package envelope

import (
	"errors"
	"fmt"

	"github.com/diogocavaiar/session-android/internal/message"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrNoDataMessage is returned when content carries no data message.
var ErrNoDataMessage = errors.New("content has no data message")

type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	b   []byte
}

func parseFields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.v = uint64(v)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

func rawDataMessage(content []byte) ([]byte, error) {
	fs, err := parseFields(content)
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for _, f := range fs {
		if f.num == contentDataMessage && f.typ == protowire.BytesType {
			return f.b, nil
		}
	}
	return nil, ErrNoDataMessage
}

func expireTimerOf(data []byte) (uint32, error) {
	fs, err := parseFields(data)
	if err != nil {
		return 0, fmt.Errorf("parse data message: %w", err)
	}
	var timer uint32
	for _, f := range fs {
		if f.num == dataExpireTimer && f.typ == protowire.VarintType {
			timer = uint32(f.v)
		}
	}
	return timer, nil
}

func strPtr(b []byte) *string {
	s := string(b)
	return &s
}

// DecodeDataMessage extracts the data message from content bytes. It
// decodes the fields a public channel speaks: body, attachments, quote,
// previews, flags, timers, profile and sync target.
func DecodeDataMessage(content []byte) (*message.DataMessage, error) {
	raw, err := rawDataMessage(content)
	if err != nil {
		return nil, err
	}
	fs, err := parseFields(raw)
	if err != nil {
		return nil, fmt.Errorf("parse data message: %w", err)
	}

	m := &message.DataMessage{}
	for _, f := range fs {
		switch f.num {
		case dataBody:
			m.Body = strPtr(f.b)
		case dataAttachments:
			p, err := decodePointer(f.b)
			if err != nil {
				return nil, err
			}
			m.Attachments = append(m.Attachments, p)
		case dataFlags:
			switch f.v {
			case flagEndSession:
				m.EndSession = true
			case flagExpirationTimerUpdate:
				m.ExpirationUpdate = true
			case flagProfileKeyUpdate:
				m.ProfileKeyUpdate = true
			case flagDeviceUnlinkingRequest:
				m.DeviceUnlink = true
			}
		case dataExpireTimer:
			m.ExpiresInSeconds = uint32(f.v)
		case dataProfileKey:
			m.ProfileKey = append([]byte{}, f.b...)
		case dataTimestamp:
			m.Timestamp = f.v
		case dataQuote:
			q, err := decodeQuote(f.b)
			if err != nil {
				return nil, err
			}
			m.Quote = q
		case dataPreview:
			p, err := decodePreview(f.b)
			if err != nil {
				return nil, err
			}
			m.Previews = append(m.Previews, p)
		case dataProfile:
			p, err := decodeProfile(f.b)
			if err != nil {
				return nil, err
			}
			m.Profile = p
		case dataSyncTarget:
			m.SyncTarget = strPtr(f.b)
		}
	}
	return m, nil
}

func decodePointer(b []byte) (*message.AttachmentPointer, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, fmt.Errorf("parse attachment pointer: %w", err)
	}
	p := &message.AttachmentPointer{}
	for _, f := range fs {
		switch f.num {
		case pointerID:
			p.ID = f.v
		case pointerContentType:
			p.ContentType = string(f.b)
		case pointerKey:
			p.Key = append([]byte{}, f.b...)
		case pointerSize:
			size := uint32(f.v)
			p.Size = &size
		case pointerThumbnail:
			p.Preview = append([]byte{}, f.b...)
		case pointerDigest:
			p.Digest = append([]byte{}, f.b...)
		case pointerFileName:
			p.FileName = strPtr(f.b)
		case pointerFlags:
			p.VoiceNote = f.v&pointerFlagVoiceMessage != 0
		case pointerWidth:
			p.Width = uint32(f.v)
		case pointerHeight:
			p.Height = uint32(f.v)
		case pointerCaption:
			p.Caption = strPtr(f.b)
		case pointerURL:
			p.URL = string(f.b)
		}
	}
	return p, nil
}

func decodeQuote(b []byte) (*message.Quote, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, fmt.Errorf("parse quote: %w", err)
	}
	q := &message.Quote{}
	for _, f := range fs {
		switch f.num {
		case quoteID:
			q.ID = f.v
		case quoteAuthor:
			q.Author = string(f.b)
		case quoteText:
			q.Text = string(f.b)
		case quoteAttachments:
			qa, err := decodeQuotedAttachment(f.b)
			if err != nil {
				return nil, err
			}
			q.Attachments = append(q.Attachments, qa)
		}
	}
	return q, nil
}

func decodeQuotedAttachment(b []byte) (message.QuotedAttachment, error) {
	var qa message.QuotedAttachment
	fs, err := parseFields(b)
	if err != nil {
		return qa, fmt.Errorf("parse quoted attachment: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case quotedContentType:
			qa.ContentType = string(f.b)
		case quotedFileName:
			qa.FileName = strPtr(f.b)
		case quotedThumbnail:
			p, err := decodePointer(f.b)
			if err != nil {
				return qa, err
			}
			qa.Thumbnail = p
		}
	}
	return qa, nil
}

func decodePreview(b []byte) (message.Preview, error) {
	var p message.Preview
	fs, err := parseFields(b)
	if err != nil {
		return p, fmt.Errorf("parse preview: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case previewURL:
			p.URL = string(f.b)
		case previewTitle:
			p.Title = string(f.b)
		case previewImage:
			img, err := decodePointer(f.b)
			if err != nil {
				return p, err
			}
			p.Image = img
		}
	}
	return p, nil
}

func decodeProfile(b []byte) (*message.Profile, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	p := &message.Profile{}
	for _, f := range fs {
		switch f.num {
		case profileDisplayName:
			p.DisplayName = strPtr(f.b)
		case profilePicture:
			p.PictureURL = strPtr(f.b)
		}
	}
	return p, nil
}
