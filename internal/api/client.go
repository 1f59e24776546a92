package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client wraps a gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SendText queues body for recipient and returns the client message id.
func (c *Client) SendText(ctx context.Context, recipient, body string) (string, error) {
	out, err := c.invoke(ctx, MethodSendText, map[string]any{
		"recipient": recipient,
		"body":      body,
	})
	if err != nil {
		return "", err
	}
	return stringField(out, "client_msg_id"), nil
}

// GetOutboxEntry returns the fields of one outbox entry.
func (c *Client) GetOutboxEntry(ctx context.Context, clientMsgID string) (map[string]any, error) {
	out, err := c.invoke(ctx, MethodGetOutboxEntry, map[string]any{"client_msg_id": clientMsgID})
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// GetStatus returns the daemon status fields.
func (c *Client) GetStatus(ctx context.Context) (map[string]any, error) {
	out, err := c.invoke(ctx, MethodGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// WatchEvents calls fn for every event under namespace until ctx is done or
// the stream fails.
func (c *Client) WatchEvents(ctx context.Context, namespace string, fn func(map[string]any)) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod(MethodWatchEvents))
	if err != nil {
		return err
	}
	in, err := structpb.NewStruct(map[string]any{"namespace": namespace})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(in); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			return err
		}
		fn(out.AsMap())
	}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}
