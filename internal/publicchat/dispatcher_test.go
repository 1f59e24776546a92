package publicchat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/message"
	"google.golang.org/protobuf/proto"
)

type fakePoster struct {
	posts    []Post
	serverID int64
	err      error
	block    bool
}

func (f *fakePoster) Post(ctx context.Context, _ message.PublicChat, post Post) (int64, error) {
	f.posts = append(f.posts, post)
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return f.serverID, f.err
}

type fakeMessages struct {
	quoteIDs  map[uint64]int64
	serverIDs map[int64]int64
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{quoteIDs: map[uint64]int64{}, serverIDs: map[int64]int64{}}
}

func (f *fakeMessages) QuoteServerID(_ context.Context, quoteID uint64, _ string) (int64, error) {
	return f.quoteIDs[quoteID], nil
}

func (f *fakeMessages) SetServerID(_ context.Context, messageID, serverID int64) error {
	f.serverIDs[messageID] = serverID
	return nil
}

var chat = message.PublicChat{Server: "https://chat.example", Channel: 1}

func build(t *testing.T, m *message.DataMessage) []byte {
	t.Helper()
	content, err := envelope.NewBuilder().Build(m)
	if err != nil {
		t.Fatal(err)
	}
	return content
}

func TestEmptyBodyPostsTimestamp(t *testing.T) {
	poster := &fakePoster{serverID: 555}
	messages := newFakeMessages()
	d := NewDispatcher(poster, messages, "05local", time.Minute, nil)

	res := d.Dispatch(context.Background(), Request{
		Recipient: message.NewRecipient("05chat"),
		MessageID: 12,
		Timestamp: 2000,
		Content:   build(t, &message.DataMessage{Body: proto.String(""), Timestamp: 2000}),
		Chat:      chat,
	})

	s, ok := res.Success()
	if !ok {
		t.Fatalf("result = %s, want success", res.Kind())
	}
	if s.Unidentified || s.NeedsSync {
		t.Errorf("success = %+v, want neither unidentified nor sync", s)
	}
	if len(poster.posts) != 1 || poster.posts[0].Body != "2000" {
		t.Fatalf("posts = %+v, want one with body 2000", poster.posts)
	}
	if messages.serverIDs[12] != 555 {
		t.Errorf("server id of message 12 = %d, want 555", messages.serverIDs[12])
	}
}

func TestPostCarriesQuoteAndAttachments(t *testing.T) {
	poster := &fakePoster{serverID: 1}
	messages := newFakeMessages()
	messages.quoteIDs[99] = 4242
	d := NewDispatcher(poster, messages, "05local", time.Minute, nil)

	size := uint32(64)
	content := build(t, &message.DataMessage{
		Body:      proto.String("look"),
		Timestamp: 3000,
		Quote:     &message.Quote{ID: 99, Author: "05alice", Text: "before"},
		Attachments: []message.Attachment{&message.AttachmentPointer{
			ID: 5, ContentType: "image/jpeg", Size: &size, URL: "https://chat.example/f/5", Caption: proto.String("sunset"), VoiceNote: true,
		}},
		Previews: []message.Preview{{
			URL: "https://news.example", Title: "News",
			Image: &message.AttachmentPointer{ID: 6, ContentType: "image/png", URL: "https://chat.example/f/6"},
		}},
	})

	res := d.Dispatch(context.Background(), Request{Recipient: message.NewRecipient("05chat"), MessageID: 1, Timestamp: 3000, Content: content, Chat: chat})
	if !res.IsSuccess() {
		t.Fatalf("result = %s", res.Kind())
	}

	post := poster.posts[0]
	if post.Quote == nil || post.Quote.ServerID != 4242 || post.Quote.Author != "05alice" {
		t.Errorf("quote = %+v", post.Quote)
	}
	if len(post.Attachments) != 2 {
		t.Fatalf("attachments = %d, want 2", len(post.Attachments))
	}
	first, second := post.Attachments[0], post.Attachments[1]
	if first.Kind != KindLinkPreview || first.ID != 6 || first.PreviewURL != "https://news.example" || first.PreviewTitle != "News" {
		t.Errorf("first attachment = %+v, want the preview image", first)
	}
	if second.Kind != KindAttachment || second.ID != 5 || second.Size != 64 || second.Caption != "sunset" || second.Flags != 1 {
		t.Errorf("second attachment = %+v", second)
	}
	if first.Server != chat.Server || post.SenderPublicKey != "05local" {
		t.Errorf("server/sender = %s/%s", first.Server, post.SenderPublicKey)
	}
}

func TestPostFailures(t *testing.T) {
	tests := []struct {
		name    string
		poster  *fakePoster
		content []byte
	}{
		{"poster error", &fakePoster{err: errors.New("502 bad gateway")}, nil},
		{"timeout", &fakePoster{block: true}, nil},
		{"not a data message", &fakePoster{}, []byte{0x32, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := newFakeMessages()
			d := NewDispatcher(tt.poster, messages, "05local", 50*time.Millisecond, nil)
			content := tt.content
			if content == nil {
				content = build(t, &message.DataMessage{Body: proto.String("x"), Timestamp: 1})
			}

			res := d.Dispatch(context.Background(), Request{Recipient: message.NewRecipient("05chat"), MessageID: 3, Timestamp: 1, Content: content, Chat: chat})
			if res.Kind() != "network_failure" {
				t.Errorf("result = %s, want network_failure", res.Kind())
			}
			if _, ok := messages.serverIDs[3]; ok {
				t.Error("server id recorded for a failed post")
			}
		})
	}
}
