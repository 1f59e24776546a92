package outbox

import (
	"context"
	"time"

	"github.com/diogocavaiar/session-android/internal/bus"
	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
	"github.com/diogocavaiar/session-android/internal/sender"
	"github.com/diogocavaiar/session-android/internal/store"
	"go.uber.org/zap"
)

// Event kinds published while draining the outbox.
const (
	KindUpserted   = "message.upserted"
	KindSendAck    = "message.send_ack"
	KindSendFailed = "message.send_failed"
)

// MessageSender sends one data message to one recipient.
type MessageSender interface {
	SendMessage(ctx context.Context, recipient message.Recipient, opts sender.Options, m *message.DataMessage) (delivery.Result, error)
}

// Worker drains the outbox and sends messages through the pipeline.
type Worker struct {
	db       *store.DB
	sender   MessageSender
	bus      *bus.Bus
	localKey string
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWorker creates a new outbox worker. localKey is the author of stored
// messages.
func NewWorker(db *store.DB, s MessageSender, b *bus.Bus, localKey string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		db:       db,
		sender:   s,
		bus:      b,
		localKey: localKey,
		interval: 500 * time.Millisecond,
		logger:   logger,
	}
}

// Start begins polling the outbox for pending messages.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
}

// Stop stops the worker loop and waits for the current batch.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) processPending(ctx context.Context) {
	pending, err := w.db.PendingOutbox()
	if err != nil {
		w.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, entry)
	}
}

func (w *Worker) process(ctx context.Context, entry store.OutboxEntry) {
	log := w.logger.With(zap.String("client_msg_id", entry.ClientMsgID), zap.String("recipient", entry.Recipient))

	threadID, err := w.db.ThreadID(ctx, entry.Recipient)
	if err != nil {
		log.Error("failed to resolve thread", zap.Error(err))
		w.fail(entry, "error", err.Error())
		return
	}

	// Store the message first so a channel can attach its server id.
	timestamp := time.Now().UnixMilli()
	messageID, err := w.db.InsertMessage(ctx, &store.Message{
		ThreadID:  threadID,
		Author:    w.localKey,
		Timestamp: timestamp,
		Body:      entry.Body,
	})
	if err != nil {
		log.Error("failed to store message", zap.Error(err))
		w.fail(entry, "error", err.Error())
		return
	}
	if err := w.db.MarkOutboxSending(entry.ClientMsgID, messageID); err != nil {
		log.Error("failed to mark sending", zap.Error(err))
		return
	}
	w.bus.Publish(bus.Event{
		Kind:      KindUpserted,
		Timestamp: time.Now(),
		Payload:   map[string]string{"recipient": entry.Recipient, "client_msg_id": entry.ClientMsgID},
	})

	body := entry.Body
	res, err := w.sender.SendMessage(ctx, message.NewRecipient(entry.Recipient), sender.Options{MessageID: messageID}, &message.DataMessage{
		Body:      &body,
		Timestamp: uint64(timestamp),
	})
	switch {
	case err != nil && res.Outcome == nil:
		log.Error("failed to send message", zap.Error(err))
		w.fail(entry, "error", err.Error())
	case !res.IsSuccess():
		log.Warn("message not delivered", zap.String("result", res.Kind()))
		w.fail(entry, res.Kind(), failureReason(res))
	default:
		if err := w.db.MarkOutboxSent(entry.ClientMsgID, res.Kind()); err != nil {
			log.Error("failed to mark sent", zap.Error(err))
		}
		log.Info("message sent", zap.Int64("message_id", messageID))
		w.bus.Publish(bus.Event{
			Kind:      KindSendAck,
			Timestamp: time.Now(),
			Payload: map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"result":        res.Kind(),
			},
		})
	}
}

func (w *Worker) fail(entry store.OutboxEntry, kind, reason string) {
	if err := w.db.MarkOutboxFailed(entry.ClientMsgID, kind, reason); err != nil {
		w.logger.Error("failed to mark failed", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}
	w.bus.Publish(bus.Event{
		Kind:      KindSendFailed,
		Timestamp: time.Now(),
		Payload: map[string]string{
			"client_msg_id": entry.ClientMsgID,
			"result":        kind,
			"error":         reason,
		},
	})
}

func failureReason(res delivery.Result) string {
	switch o := res.Outcome.(type) {
	case *delivery.NodeError:
		return o.Error()
	case *delivery.IdentityFailure:
		return "identity key changed for " + res.Recipient.PublicKey
	case *delivery.UnregisteredFailure:
		return "no endpoint for " + res.Recipient.PublicKey
	default:
		return "network failure"
	}
}
