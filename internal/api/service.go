// Package api exposes the daemon over gRPC on the session's Unix socket.
package api

import (
	"context"
	"strings"
	"time"

	"github.com/diogocavaiar/session-android/internal/bus"
	"github.com/diogocavaiar/session-android/internal/session"
	"github.com/diogocavaiar/session-android/internal/status"
	"github.com/diogocavaiar/session-android/internal/store"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service implements MessageServer on top of the store outbox.
type Service struct {
	sessionName string
	startedAt   time.Time
	db          *store.DB
	machine     *status.Machine
	bus         *bus.Bus
}

// NewService creates a new service.
func NewService(sessionName string, db *store.DB, machine *status.Machine, b *bus.Bus) *Service {
	return &Service{
		sessionName: sessionName,
		startedAt:   time.Now(),
		db:          db,
		machine:     machine,
		bus:         b,
	}
}

// SendText queues a text message. Request fields: recipient, body and an
// optional client_msg_id. Reply fields: client_msg_id, accepted.
func (s *Service) SendText(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recipient := strings.TrimSpace(stringField(req, "recipient"))
	body := stringField(req, "body")
	if recipient == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "recipient is required")
	}
	if err := session.ValidateRecipient(recipient); err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	if body == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "body is required")
	}
	clientMsgID := stringField(req, "client_msg_id")
	if clientMsgID == "" {
		clientMsgID = uuid.NewString()
	}

	if err := s.db.QueueOutbox(clientMsgID, recipient, body); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "queue outbox: %v", err)
	}
	return newStruct(map[string]any{
		"client_msg_id": clientMsgID,
		"accepted":      true,
	})
}

// GetOutboxEntry returns the state of a queued message. Request fields:
// client_msg_id.
func (s *Service) GetOutboxEntry(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "client_msg_id")
	if id == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "client_msg_id is required")
	}
	e, err := s.db.GetOutboxEntry(id)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "get outbox entry: %v", err)
	}
	if e == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "no outbox entry %q", id)
	}
	return newStruct(map[string]any{
		"client_msg_id": e.ClientMsgID,
		"recipient":     e.Recipient,
		"body":          e.Body,
		"status":        e.Status,
		"result_kind":   e.ResultKind,
		"error":         e.ErrorMessage,
		"message_id":    e.MessageID,
	})
}

// GetStatus reports the session name, transport state, uptime and the
// number of events watchers missed.
func (s *Service) GetStatus(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	state, since := s.machine.Snapshot()
	return newStruct(map[string]any{
		"session":        s.sessionName,
		"state":          string(state),
		"state_since_ms": since.UnixMilli(),
		"uptime_ms":      time.Since(s.startedAt).Milliseconds(),
		"dropped_events": s.bus.Dropped(),
	})
}

// WatchEvents streams bus events until the client goes away. Request
// fields: an optional namespace prefix, "message." by default.
func (s *Service) WatchEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	namespace := stringField(req, "namespace")
	if namespace == "" {
		namespace = "message."
	}
	ch, unsub := s.bus.Subscribe(namespace, 64)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			out, err := eventToStruct(evt)
			if err != nil {
				return grpcstatus.Errorf(codes.Internal, "encode event: %v", err)
			}
			if err := stream.SendMsg(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func eventToStruct(evt bus.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"event_id":            uuid.NewString(),
		"kind":                evt.Kind,
		"occurred_at_unix_ms": evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case map[string]string:
		payload := make(map[string]any, len(p))
		for k, v := range p {
			payload[k] = v
		}
		fields["payload"] = payload
	case bus.MessageEvent:
		fields["payload"] = map[string]any{"timestamp": p.Timestamp}
	case status.StatusChange:
		fields["payload"] = map[string]any{"from": string(p.From), "to": string(p.To)}
	}
	return structpb.NewStruct(fields)
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}
