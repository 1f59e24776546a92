package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/message"
)

// SendTyping sends a typing indicator to every recipient in order. Typing
// indicators are never synced.
func (s *Sender) SendTyping(ctx context.Context, recipients []message.Recipient, opts Options, m *message.TypingMessage) ([]delivery.Result, error) {
	if m == nil {
		return nil, errors.New("send typing: nil message")
	}
	if m.Timestamp == 0 {
		t := *m
		t.Timestamp = uint64(s.now().UnixMilli())
		m = &t
	}
	content, err := s.Builder.Build(m)
	if err != nil {
		return nil, fmt.Errorf("build typing message: %w", err)
	}

	results := make([]delivery.Result, 0, len(recipients))
	for _, r := range recipients {
		res, _ := s.dispatch(ctx, r, m, content, dispatchParams{
			timestamp:    m.Timestamp,
			ttl:          opts.TTL,
			unidentified: opts.Unidentified,
		})
		results = append(results, res)
	}
	return results, nil
}

// SendReceipt sends a delivery or read receipt for received messages.
func (s *Sender) SendReceipt(ctx context.Context, recipient message.Recipient, opts Options, m *message.ReceiptMessage) (delivery.Result, error) {
	if m == nil {
		return delivery.Result{}, errors.New("send receipt: nil message")
	}
	content, err := s.Builder.Build(m)
	if err != nil {
		return delivery.Result{}, fmt.Errorf("build receipt: %w", err)
	}
	res, _ := s.dispatch(ctx, recipient, m, content, dispatchParams{
		timestamp:    m.When,
		ttl:          opts.TTL,
		unidentified: opts.Unidentified,
	})
	return res, nil
}
