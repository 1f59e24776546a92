package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/diogocavaiar/session-android/internal/message"
	"github.com/diogocavaiar/session-android/internal/publicchat"
)

// Annotation types of a channel message.
const (
	annotationPublicChat = "network.loki.messenger.publicChat"
	annotationOEmbed     = "net.app.core.oembed"
)

type annotation struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type channelPost struct {
	Text        string       `json:"text"`
	Annotations []annotation `json:"annotations"`
}

type publicChatValue struct {
	Timestamp uint64      `json:"timestamp"`
	From      string      `json:"from,omitempty"`
	Quote     *quoteValue `json:"quote,omitempty"`
}

type quoteValue struct {
	ID       uint64 `json:"id"`
	Author   string `json:"author"`
	Text     string `json:"text"`
	ServerID int64  `json:"serverID,omitempty"`
}

type attachmentValue struct {
	Kind        string `json:"lokiType"`
	Server      string `json:"server"`
	ID          uint64 `json:"id"`
	ContentType string `json:"contentType"`
	Size        uint32 `json:"size"`
	FileName    string `json:"fileName,omitempty"`
	Flags       uint32 `json:"flags"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	Caption     string `json:"caption,omitempty"`
	URL         string `json:"url"`
	LinkPreview string `json:"linkPreviewUrl,omitempty"`
	Title       string `json:"title,omitempty"`
}

// ChannelPoster posts messages to public channel servers.
type ChannelPoster struct {
	client *http.Client
}

// NewChannelPoster returns a channel poster.
func NewChannelPoster(client *http.Client) *ChannelPoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChannelPoster{client: client}
}

// Post posts to {server}/channels/{channel}/messages and returns the
// server-assigned id.
func (c *ChannelPoster) Post(ctx context.Context, chat message.PublicChat, post publicchat.Post) (int64, error) {
	body, err := json.Marshal(encodePost(post))
	if err != nil {
		return 0, fmt.Errorf("encode post: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%d/messages", strings.TrimSuffix(chat.Server, "/"), chat.Channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var out idResponse
	if err := decodeResponse(resp, &out); err != nil {
		return 0, err
	}
	return parseID(out.Data.ID)
}

func encodePost(post publicchat.Post) channelPost {
	value := publicChatValue{Timestamp: post.Timestamp, From: post.SenderPublicKey}
	if q := post.Quote; q != nil {
		value.Quote = &quoteValue{ID: q.ID, Author: q.Author, Text: q.Text, ServerID: q.ServerID}
	}

	annotations := []annotation{{Type: annotationPublicChat, Value: value}}
	for _, a := range post.Attachments {
		annotations = append(annotations, annotation{Type: annotationOEmbed, Value: attachmentValue{
			Kind:        a.Kind,
			Server:      a.Server,
			ID:          a.ID,
			ContentType: a.ContentType,
			Size:        a.Size,
			FileName:    a.FileName,
			Flags:       a.Flags,
			Width:       a.Width,
			Height:      a.Height,
			Caption:     a.Caption,
			URL:         a.URL,
			LinkPreview: a.PreviewURL,
			Title:       a.PreviewTitle,
		}})
	}
	return channelPost{Text: post.Body, Annotations: annotations}
}
