// Package swarm delivers encrypted messages to a recipient's redundant set of
// storage nodes.
//
// A submission yields one pending operation per node. The first operation to
// succeed resolves the dispatch as delivered; failure is reported only once
// every operation failed, with the last failure deciding the result. The
// whole wait is bounded by a timeout.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/envelope"
	"github.com/diogocavaiar/session-android/internal/message"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one dispatch.
const DefaultTimeout = time.Minute

// Default device ids carried in envelopes.
const (
	anonymousDevice uint32 = 0
	defaultDevice   uint32 = 1
)

var (
	errTimeout       = errors.New("swarm dispatch timed out")
	errOperationGone = errors.New("storage node operation closed without a result")
)

// Result is what one storage node answered.
type Result struct {
	Payload []byte
	Err     error
}

// Operation is a pending per-node store. It yields exactly one Result.
type Operation <-chan Result

// Transport submits one message to the recipient's swarm.
type Transport interface {
	Submit(ctx context.Context, info delivery.MessageInfo) ([]Operation, error)
}

// Encryptor is the session-protocol cipher. Encrypt hides the sender;
// EncryptFallback is used before a session exists.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte, recipientPublicKey string) ([]byte, error)
	EncryptFallback(ctx context.Context, plaintext []byte, recipientPublicKey string) ([]byte, error)
}

// ClosedGroupStore knows which identifiers are closed groups and the key
// their members currently share.
type ClosedGroupStore interface {
	IsClosedGroup(ctx context.Context, identifier string) (bool, error)
	CurrentEncryptionKey(ctx context.Context, identifier string) (string, error)
}

// Request is one private-chat dispatch.
type Request struct {
	Recipient          message.Recipient
	Timestamp          uint64
	Content            []byte
	TTL                time.Duration
	FallbackEncryption bool
	Unidentified       bool
	NotifyPush         bool
}

// Dispatcher encrypts and submits messages. It does not broadcast or notify
// itself; it returns the effects for the caller to apply.
type Dispatcher struct {
	enc        Encryptor
	groups     ClosedGroupStore
	transport  Transport
	localKey   string
	regularTTL time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds the dispatcher settings.
type Config struct {
	LocalPublicKey string
	RegularTTL     time.Duration
	Timeout        time.Duration
}

// NewDispatcher returns a dispatcher. A zero Timeout means DefaultTimeout.
func NewDispatcher(enc Encryptor, groups ClosedGroupStore, transport Transport, cfg Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		enc:        enc,
		groups:     groups,
		transport:  transport,
		localKey:   cfg.LocalPublicKey,
		regularTTL: cfg.RegularTTL,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// Dispatch sends req and returns its result with the effects it requests.
// It never returns an error: every failure is a result variant.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (delivery.Result, []delivery.Effect) {
	r := req.Recipient
	log := d.logger.With(zap.String("recipient", r.PublicKey), zap.Uint64("timestamp", req.Timestamp))

	info, err := d.encrypt(ctx, req)
	if err != nil {
		log.Warn("encrypt failed", zap.Error(err))
		return delivery.FromError(r, err), nil
	}

	ops, err := d.transport.Submit(ctx, info)
	if err != nil {
		log.Warn("swarm submission failed", zap.Error(err))
		return delivery.FromError(r, err), nil
	}
	if len(ops) == 0 {
		log.Debug("swarm submission produced no operations")
		return delivery.Succeeded(r, false, false), nil
	}

	regular := req.TTL == d.regularTTL
	err = d.await(ctx, ops)
	switch {
	case err == nil:
		var effects []delivery.Effect
		if regular {
			effects = append(effects, &delivery.Broadcast{Event: delivery.EventMessageSent, Timestamp: req.Timestamp})
			if req.NotifyPush {
				effects = append(effects, &delivery.Notify{Info: info})
			}
		}
		log.Info("message stored", zap.Int("nodes", len(ops)), zap.Stringer("type", info.Type))
		return delivery.Succeeded(r, req.Unidentified, true), effects
	case errors.Is(err, errTimeout):
		log.Warn("swarm dispatch did not resolve", zap.Error(err))
		return delivery.NetworkFailed(r), nil
	default:
		log.Warn("every storage node failed", zap.Int("nodes", len(ops)), zap.Error(err))
		var effects []delivery.Effect
		if regular {
			effects = append(effects, &delivery.Broadcast{Event: delivery.EventMessageFailed, Timestamp: req.Timestamp})
		}
		return delivery.FromError(r, err), effects
	}
}

func (d *Dispatcher) encrypt(ctx context.Context, req Request) (delivery.MessageInfo, error) {
	r := req.Recipient
	padded := envelope.PadForTransport(req.Content)
	info := delivery.MessageInfo{
		Timestamp: req.Timestamp,
		Recipient: r.PublicKey,
		TTL:       req.TTL,
	}

	closed, err := d.groups.IsClosedGroup(ctx, r.PublicKey)
	if err != nil {
		return info, fmt.Errorf("closed group lookup: %w", err)
	}

	switch {
	case closed:
		key, err := d.groups.CurrentEncryptionKey(ctx, r.PublicKey)
		if err != nil {
			return info, fmt.Errorf("closed group key: %w", err)
		}
		if info.Content, err = d.enc.Encrypt(ctx, padded, key); err != nil {
			return info, err
		}
		info.Type, info.SenderID, info.SenderDevice = delivery.EnvelopeClosedGroupCiphertext, r.PublicKey, defaultDevice
	case req.FallbackEncryption:
		if info.Content, err = d.enc.EncryptFallback(ctx, padded, r.PublicKey); err != nil {
			return info, err
		}
		info.Type, info.SenderID, info.SenderDevice = delivery.EnvelopeCiphertext, d.localKey, defaultDevice
	default:
		if info.Content, err = d.enc.Encrypt(ctx, padded, r.PublicKey); err != nil {
			return info, err
		}
		info.Type, info.SenderID, info.SenderDevice = delivery.EnvelopeUnidentifiedSender, "", anonymousDevice
	}
	return info, nil
}

// await resolves on the first successful operation or the last failed one.
// Operations still pending afterwards finish in the background; their
// results land in the buffered channel and are dropped.
func (d *Dispatcher) await(ctx context.Context, ops []Operation) error {
	results := make(chan error, len(ops))
	for _, op := range ops {
		go func() {
			res, ok := <-op
			if !ok {
				results <- errOperationGone
				return
			}
			results <- res.Err
		}()
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	remaining := len(ops)
	for {
		select {
		case err := <-results:
			if err == nil {
				return nil
			}
			remaining--
			if remaining == 0 {
				return err
			}
		case <-timer.C:
			return errTimeout
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errTimeout, ctx.Err())
		}
	}
}
