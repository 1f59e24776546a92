// Package attachment uploads local attachment streams and returns the
// pointers embedded into envelopes. Streams bound for a public channel are
// uploaded as plaintext to the channel server; everything else is encrypted
// to the default file server.
package attachment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/diogocavaiar/session-android/internal/message"
	"go.uber.org/zap"
)

// UploadResult is what a file store returns for one upload.
type UploadResult struct {
	ID  uint64
	URL string
}

// FileStore accepts an upload body of exactly length bytes.
type FileStore interface {
	Upload(ctx context.Context, server string, body io.Reader, length int64, contentType string) (UploadResult, error)
}

// ChannelLookup returns the public chat a recipient's thread is bound to,
// or nil for a private thread.
type ChannelLookup interface {
	PublicChatFor(ctx context.Context, publicKey string) (*message.PublicChat, error)
}

// Uploader runs the upload pipeline.
type Uploader struct {
	files      FileStore
	channels   ChannelLookup
	fileServer string
	rand       io.Reader
	logger     *zap.Logger
}

// NewUploader returns an uploader sending private attachments to fileServer.
func NewUploader(files FileStore, channels ChannelLookup, fileServer string, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		files:      files,
		channels:   channels,
		fileServer: fileServer,
		rand:       rand.Reader,
		logger:     logger,
	}
}

// Upload uploads stream and returns its pointer. recipient may be nil, in
// which case the attachment goes encrypted to the file server. The pointer
// size is always the original stream length.
func (u *Uploader) Upload(ctx context.Context, stream *message.AttachmentStream, usePadding bool, recipient *message.Recipient) (*message.AttachmentPointer, error) {
	if stream == nil || stream.Reader == nil {
		return nil, errors.New("upload: no attachment data")
	}
	if stream.Length < 0 || stream.Length > math.MaxUint32 {
		return nil, fmt.Errorf("upload: invalid attachment length %d", stream.Length)
	}

	server, encrypt := u.fileServer, true
	if recipient != nil {
		chat, err := u.channels.PublicChatFor(ctx, recipient.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("upload: resolve destination: %w", err)
		}
		if chat != nil {
			server, encrypt = chat.Server, false
		}
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(u.rand, key); err != nil {
		return nil, fmt.Errorf("upload: attachment key: %w", err)
	}

	var (
		body   io.Reader = newExactReader(stream.Reader, stream.Length)
		length           = stream.Length
	)
	if usePadding {
		body, length = NewPaddingReader(stream.Reader, stream.Length), PaddedSize(stream.Length)
	}

	var cr *CipherReader
	if encrypt {
		iv := make([]byte, ivSize)
		if _, err := io.ReadFull(u.rand, iv); err != nil {
			return nil, fmt.Errorf("upload: attachment iv: %w", err)
		}
		var err error
		if cr, err = NewCipherReader(body, key, iv); err != nil {
			return nil, fmt.Errorf("upload: %w", err)
		}
		body, length = cr, CiphertextLength(length)
	}

	res, err := u.files.Upload(ctx, server, body, length, stream.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload to %s: %w", server, err)
	}

	var digest []byte
	if cr != nil {
		if digest = cr.Digest(); digest == nil {
			return nil, errors.New("upload: file store did not consume the attachment")
		}
	}

	u.logger.Info("attachment uploaded",
		zap.Uint64("id", res.ID),
		zap.String("server", server),
		zap.Bool("encrypted", encrypt),
		zap.Int64("length", length))

	size := uint32(stream.Length)
	return &message.AttachmentPointer{
		ID:          res.ID,
		ContentType: stream.ContentType,
		Key:         key,
		Size:        &size,
		Preview:     stream.Preview,
		Width:       stream.Width,
		Height:      stream.Height,
		Digest:      digest,
		FileName:    stream.FileName,
		VoiceNote:   stream.VoiceNote,
		Caption:     stream.Caption,
		URL:         res.URL,
	}, nil
}
