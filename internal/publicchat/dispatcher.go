// Package publicchat posts messages to server-hosted public channels.
package publicchat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/message"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one post.
const DefaultTimeout = time.Minute

// Attachment kinds understood by channel servers.
const (
	KindAttachment  = "attachment"
	KindLinkPreview = "preview"
)

// Attachment is a channel-native attachment descriptor.
type Attachment struct {
	Kind         string
	Server       string
	ID           uint64
	ContentType  string
	Size         uint32
	FileName     string
	Flags        uint32
	Width        uint32
	Height       uint32
	Caption      string
	URL          string
	PreviewURL   string
	PreviewTitle string
}

// Quote references an earlier channel message by its server id.
type Quote struct {
	ID       uint64
	Author   string
	Text     string
	ServerID int64
}

// Post is one channel message.
type Post struct {
	SenderPublicKey string
	Body            string
	Timestamp       uint64
	Quote           *Quote
	Attachments     []Attachment
}

// Poster posts to a channel and returns the server-assigned message id.
type Poster interface {
	Post(ctx context.Context, chat message.PublicChat, post Post) (int64, error)
}

// MessageStore tracks channel server ids of local messages.
type MessageStore interface {
	QuoteServerID(ctx context.Context, quoteID uint64, author string) (int64, error)
	SetServerID(ctx context.Context, messageID, serverID int64) error
}

// Request is one channel dispatch.
type Request struct {
	Recipient message.Recipient
	MessageID int64
	Timestamp uint64
	Content   []byte
	Chat      message.PublicChat
}

// Dispatcher posts messages to public channels.
type Dispatcher struct {
	poster   Poster
	messages MessageStore
	localKey string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDispatcher returns a dispatcher. A non-positive timeout means
// DefaultTimeout.
func NewDispatcher(poster Poster, messages MessageStore, localPublicKey string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		poster:   poster,
		messages: messages,
		localKey: localPublicKey,
		timeout:  timeout,
		logger:   logger,
	}
}

type postResult struct {
	serverID int64
	err      error
}

// Dispatch posts req once. Any failure, including the timeout, is a network
// failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) delivery.Result {
	r := req.Recipient
	log := d.logger.With(
		zap.String("server", req.Chat.Server),
		zap.Int64("channel", req.Chat.Channel),
		zap.Uint64("timestamp", req.Timestamp))

	if req.MessageID == 0 {
		log.Debug("posting without a local message id")
	}

	post, err := d.buildPost(ctx, req)
	if err != nil {
		log.Warn("build channel post", zap.Error(err))
		return delivery.NetworkFailed(r)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan postResult, 1)
	go func() {
		id, err := d.poster.Post(ctx, req.Chat, post)
		done <- postResult{serverID: id, err: err}
	}()

	var res postResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		log.Warn("channel post failed", zap.Error(res.err))
		return delivery.NetworkFailed(r)
	}

	if err := d.messages.SetServerID(context.WithoutCancel(ctx), req.MessageID, res.serverID); err != nil {
		log.Warn("record server id", zap.Int64("server_id", res.serverID), zap.Error(err))
	}
	log.Info("channel message posted", zap.Int64("server_id", res.serverID))
	return delivery.Succeeded(r, false, false)
}

func (d *Dispatcher) buildPost(ctx context.Context, req Request) (Post, error) {
	data, err := envelope.DecodeDataMessage(req.Content)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		SenderPublicKey: d.localKey,
		Body:            displayBody(data),
		Timestamp:       req.Timestamp,
	}

	if q := data.Quote; q != nil {
		serverID, err := d.messages.QuoteServerID(ctx, q.ID, q.Author)
		if err != nil {
			return Post{}, fmt.Errorf("quote server id: %w", err)
		}
		post.Quote = &Quote{ID: q.ID, Author: q.Author, Text: q.Text, ServerID: serverID}
	}

	if len(data.Previews) > 0 {
		preview := data.Previews[0]
		if p, ok := preview.Image.(*message.AttachmentPointer); ok {
			a := channelAttachment(KindLinkPreview, req.Chat.Server, p)
			a.PreviewURL, a.PreviewTitle = preview.URL, preview.Title
			post.Attachments = append(post.Attachments, a)
		}
	}
	for _, att := range data.Attachments {
		p, ok := att.(*message.AttachmentPointer)
		if !ok {
			return Post{}, errors.New("attachment was not uploaded")
		}
		post.Attachments = append(post.Attachments, channelAttachment(KindAttachment, req.Chat.Server, p))
	}
	return post, nil
}

// displayBody returns the message body, or its timestamp when the body is
// empty. Channels reject empty bodies.
func displayBody(m *message.DataMessage) string {
	if m.Body != nil && *m.Body != "" {
		return *m.Body
	}
	return strconv.FormatUint(m.Timestamp, 10)
}

func channelAttachment(kind, server string, p *message.AttachmentPointer) Attachment {
	a := Attachment{
		Kind:        kind,
		Server:      server,
		ID:          p.ID,
		ContentType: p.ContentType,
		Width:       p.Width,
		Height:      p.Height,
		URL:         p.URL,
	}
	if p.Size != nil {
		a.Size = *p.Size
	}
	if p.FileName != nil {
		a.FileName = *p.FileName
	}
	if p.Caption != nil {
		a.Caption = *p.Caption
	}
	if p.VoiceNote {
		a.Flags = 1
	}
	return a
}
