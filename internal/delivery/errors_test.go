package delivery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/diogocavaiar/session-android/internal/message"
)

func TestFromError(t *testing.T) {
	r := message.NewRecipient("05aa")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"node error", &NodeError{Code: 406, Detail: "clock out of sync"}, "node_error"},
		{"wrapped node error", fmt.Errorf("store: %w", &NodeError{Code: 421}), "node_error"},
		{"identity", &UntrustedIdentityError{PublicKey: "05aa", IdentityKey: []byte{1}}, "identity_mismatch"},
		{"unregistered", &UnregisteredUserError{PublicKey: "05aa"}, "unregistered"},
		{"network", &NetworkError{Err: errors.New("dial tcp: refused")}, "network_failure"},
		{"anything else", context.DeadlineExceeded, "network_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(r, tt.err)
			if got.Kind() != tt.want {
				t.Errorf("FromError(%v).Kind() = %q, want %q", tt.err, got.Kind(), tt.want)
			}
			if !got.Recipient.Equal(r) {
				t.Errorf("recipient = %s, want %s", got.Recipient, r)
			}
		})
	}
}

func TestFromErrorKeepsNodeDetail(t *testing.T) {
	res := FromError(message.NewRecipient("05aa"), &NodeError{Code: 432, Detail: "pow"})
	nodeErr, ok := res.Outcome.(*NodeError)
	if !ok {
		t.Fatalf("outcome = %T, want *NodeError", res.Outcome)
	}
	if nodeErr.Code != 432 || nodeErr.Detail != "pow" {
		t.Errorf("node error = %+v", nodeErr)
	}
}

func TestAnyNeedsSync(t *testing.T) {
	r := message.NewRecipient("05aa")
	tests := []struct {
		name    string
		results []Result
		want    bool
	}{
		{"empty", nil, false},
		{"failures only", []Result{NetworkFailed(r), Unregistered(r)}, false},
		{"success without sync", []Result{Succeeded(r, true, false)}, false},
		{"one needs sync", []Result{NetworkFailed(r), Succeeded(r, false, true)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnyNeedsSync(tt.results); got != tt.want {
				t.Errorf("AnyNeedsSync = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingBroadcaster struct {
	events []string
}

func (b *recordingBroadcaster) Broadcast(event string, _ uint64) {
	b.events = append(b.events, event)
}

type failingNotifier struct {
	calls int
}

func (n *failingNotifier) Notify(context.Context, MessageInfo) error {
	n.calls++
	return errors.New("push service down")
}

func TestApplyRunsEveryEffect(t *testing.T) {
	b := &recordingBroadcaster{}
	n := &failingNotifier{}
	effects := []Effect{
		&Broadcast{Event: EventMessageSent, Timestamp: 1},
		&Notify{Info: MessageInfo{Recipient: "05aa"}},
		&Broadcast{Event: EventMessageFailed, Timestamp: 1},
	}

	Apply(context.Background(), effects, b, n, nil)

	if len(b.events) != 2 || b.events[0] != EventMessageSent || b.events[1] != EventMessageFailed {
		t.Errorf("events = %v", b.events)
	}
	if n.calls != 1 {
		t.Errorf("notify calls = %d, want 1", n.calls)
	}
}
