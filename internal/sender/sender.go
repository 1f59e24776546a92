// Package sender is the outbound message pipeline: it builds content
// envelopes, resolves a route per recipient, dispatches over the swarm or a
// public channel and replicates sent messages to the account's linked
// devices.
package sender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/message"
	"github.com/diogocavaiar/session-android/internal/publicchat"
	"github.com/diogocavaiar/session-android/internal/routing"
	"github.com/diogocavaiar/session-android/internal/store"
	"github.com/diogocavaiar/session-android/internal/swarm"
	"go.uber.org/zap"
)

// DefaultSyncConcurrency bounds concurrent dispatches of one sync fan-out.
const DefaultSyncConcurrency = 4

// Router resolves the route of one message to one recipient.
type Router interface {
	Resolve(ctx context.Context, recipient message.Recipient, c message.Content, override *time.Duration) (routing.Route, error)
}

// SwarmDispatcher delivers to a recipient's storage nodes.
type SwarmDispatcher interface {
	Dispatch(ctx context.Context, req swarm.Request) (delivery.Result, []delivery.Effect)
}

// ChannelDispatcher posts to a public channel.
type ChannelDispatcher interface {
	Dispatch(ctx context.Context, req publicchat.Request) delivery.Result
}

// Uploader uploads attachment streams.
type Uploader interface {
	Upload(ctx context.Context, stream *message.AttachmentStream, usePadding bool, recipient *message.Recipient) (*message.AttachmentPointer, error)
}

// ProfileStore returns local profiles.
type ProfileStore interface {
	Profile(ctx context.Context, publicKey string) (*store.Profile, error)
}

// DeviceDirectory lists the devices linked to an account.
type DeviceDirectory interface {
	LinkedDevices(ctx context.Context, master string) ([]string, error)
}

// SessionTracker records the session state changes caused by sends.
type SessionTracker interface {
	SetSessionEstablished(ctx context.Context, publicKey string, established bool) error
	MarkSessionResetInProgress(ctx context.Context, r message.Recipient) error
}

// Options are per-send settings.
type Options struct {
	// MessageID is the local id of the message, used to record the server id
	// a public channel assigns.
	MessageID int64
	// Unidentified reports whether unidentified access is used.
	Unidentified bool
	// TTL overrides the category TTL. A non-positive value means the
	// fallback TTL.
	TTL *time.Duration
}

// Deps holds the collaborators of a Sender.
type Deps struct {
	Builder     *envelope.Builder
	Router      Router
	Swarm       SwarmDispatcher
	Channel     ChannelDispatcher
	Uploader    Uploader
	Profiles    ProfileStore
	Devices     DeviceDirectory
	Sessions    SessionTracker
	Policy      SyncPolicy
	Broadcaster delivery.Broadcaster
	Notifier    delivery.Notifier
}

// Config holds the sender settings.
type Config struct {
	LocalPublicKey  string
	SyncConcurrency int
}

// Sender sends messages. It is safe for concurrent use.
type Sender struct {
	Deps
	localKey  string
	syncLimit int
	now       func() time.Time
	logger    *zap.Logger
}

// New returns a sender. A nil Policy means DefaultSyncPolicy.
func New(deps Deps, cfg Config, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Builder == nil {
		deps.Builder = envelope.NewBuilder()
	}
	if deps.Policy == nil {
		deps.Policy = DefaultSyncPolicy
	}
	if cfg.SyncConcurrency <= 0 {
		cfg.SyncConcurrency = DefaultSyncConcurrency
	}
	return &Sender{
		Deps:      deps,
		localKey:  cfg.LocalPublicKey,
		syncLimit: cfg.SyncConcurrency,
		now:       time.Now,
		logger:    logger,
	}
}

// SendMessage sends m to one recipient. The returned error is an
// *delivery.UntrustedIdentityError when the recipient's identity changed;
// other failures are result variants. Encoding and upload failures return
// an error and no result.
func (s *Sender) SendMessage(ctx context.Context, recipient message.Recipient, opts Options, m *message.DataMessage) (delivery.Result, error) {
	m, content, err := s.prepare(ctx, &recipient, m)
	if err != nil {
		return delivery.Result{}, err
	}

	res, route := s.dispatch(ctx, recipient, m, content, dispatchParams{
		messageID:    opts.MessageID,
		timestamp:    m.Timestamp,
		ttl:          opts.TTL,
		unidentified: opts.Unidentified,
		notify:       m.HasVisibleContent(),
	})

	if (res.NeedsSync() || opts.Unidentified) && !route.SelfSend && s.Policy.IsSyncable(m) {
		destination := recipient.PublicKey
		if _, err := s.syncTranscript(ctx, content, &destination, m.Timestamp, []delivery.Result{res}, opts.TTL); err != nil {
			return res, err
		}
	}

	if m.EndSession {
		if err := s.Sessions.MarkSessionResetInProgress(ctx, recipient); err != nil {
			s.logger.Warn("mark session reset", zap.String("recipient", recipient.PublicKey), zap.Error(err))
		}
	}

	if f, ok := res.Outcome.(*delivery.IdentityFailure); ok {
		return res, &delivery.UntrustedIdentityError{PublicKey: recipient.PublicKey, IdentityKey: f.IdentityKey}
	}
	return res, nil
}

// SendMessages sends m to every recipient in order and returns one result
// per recipient at the recipient's index. A failed recipient never stops the
// others.
func (s *Sender) SendMessages(ctx context.Context, recipients []message.Recipient, opts Options, m *message.DataMessage) ([]delivery.Result, error) {
	if len(recipients) == 0 {
		return nil, nil
	}
	m, content, err := s.prepare(ctx, &recipients[0], m)
	if err != nil {
		return nil, err
	}

	results := make([]delivery.Result, 0, len(recipients))
	for _, r := range recipients {
		res, _ := s.dispatch(ctx, r, m, content, dispatchParams{
			messageID:    opts.MessageID,
			timestamp:    m.Timestamp,
			ttl:          opts.TTL,
			unidentified: opts.Unidentified,
			notify:       m.HasVisibleContent(),
		})
		results = append(results, res)
	}

	if delivery.AnyNeedsSync(results) && !m.IsSelfSend() && s.Policy.IsSyncable(m) {
		if _, err := s.syncTranscript(ctx, content, nil, m.Timestamp, results, opts.TTL); err != nil {
			return results, err
		}
	}
	return results, nil
}

// UploadAttachment uploads a stream for recipient, which may be nil.
func (s *Sender) UploadAttachment(ctx context.Context, stream *message.AttachmentStream, usePadding bool, recipient *message.Recipient) (*message.AttachmentPointer, error) {
	return s.Uploader.Upload(ctx, stream, usePadding, recipient)
}

// prepare returns a copy of m ready to build, and its content bytes.
func (s *Sender) prepare(ctx context.Context, recipient *message.Recipient, m *message.DataMessage) (*message.DataMessage, []byte, error) {
	if m == nil {
		return nil, nil, errors.New("send: nil message")
	}
	m, err := s.resolveStreams(ctx, m, recipient)
	if err != nil {
		return nil, nil, err
	}
	if m.Timestamp == 0 {
		m.Timestamp = uint64(s.now().UnixMilli())
	}
	if m.Profile == nil {
		m.Profile = s.localProfile(ctx)
	}
	content, err := s.Builder.Build(m)
	if err != nil {
		return nil, nil, fmt.Errorf("build content: %w", err)
	}
	return m, content, nil
}

func (s *Sender) localProfile(ctx context.Context) *message.Profile {
	if s.Profiles == nil {
		return nil
	}
	p, err := s.Profiles.Profile(ctx, s.localKey)
	if err != nil {
		s.logger.Warn("read local profile", zap.Error(err))
		return nil
	}
	if p == nil || (p.DisplayName == nil && p.PictureURL == nil) {
		return nil
	}
	return &message.Profile{DisplayName: p.DisplayName, PictureURL: p.PictureURL}
}

type dispatchParams struct {
	messageID    int64
	timestamp    uint64
	ttl          *time.Duration
	unidentified bool
	notify       bool
	privateOnly  bool
}

// dispatch resolves the route of content to r and sends it. Route failures
// are converted to results like every other failure.
func (s *Sender) dispatch(ctx context.Context, r message.Recipient, c message.Content, content []byte, p dispatchParams) (delivery.Result, routing.Route) {
	route, err := s.Router.Resolve(ctx, r, c, p.ttl)
	if err != nil {
		s.logger.Warn("resolve route", zap.String("recipient", r.PublicKey), zap.Error(err))
		return delivery.FromError(r, err), route
	}

	if route.Kind == routing.PublicChannel && !p.privateOnly {
		return s.Channel.Dispatch(ctx, publicchat.Request{
			Recipient: r,
			MessageID: p.messageID,
			Timestamp: p.timestamp,
			Content:   content,
			Chat:      *route.Chat,
		}), route
	}

	res, effects := s.Swarm.Dispatch(ctx, swarm.Request{
		Recipient:          r,
		Timestamp:          p.timestamp,
		Content:            content,
		TTL:                route.TTL,
		FallbackEncryption: route.FallbackEncryption,
		Unidentified:       p.unidentified,
		NotifyPush:         p.notify,
	})
	delivery.Apply(ctx, effects, s.Broadcaster, s.Notifier, s.logger)

	if route.FallbackEncryption && res.IsSuccess() && !isEndSession(c) {
		if err := s.Sessions.SetSessionEstablished(ctx, r.PublicKey, true); err != nil {
			s.logger.Warn("mark session established", zap.String("recipient", r.PublicKey), zap.Error(err))
		}
	}
	return res, route
}

func isEndSession(c message.Content) bool {
	m, ok := c.(*message.DataMessage)
	return ok && m.EndSession
}
