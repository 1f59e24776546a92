package transport

import (
	"context"
	"sync/atomic"

	"github.com/diogocavaiar/session-android/internal/delivery"
	"github.com/diogocavaiar/session-android/internal/swarm"
)

// Switch routes swarm submissions through the current message pipe, or the
// direct fallback transport while no pipe is set. The pipe is swapped
// atomically; in-flight submissions keep the pipe they loaded.
type Switch struct {
	pipe     atomic.Pointer[Pipe]
	fallback swarm.Transport
}

// NewSwitch returns a switch without a pipe.
func NewSwitch(fallback swarm.Transport) *Switch {
	return &Switch{fallback: fallback}
}

// SetPipe installs p, which may be nil, and returns the previous pipe.
func (s *Switch) SetPipe(p *Pipe) *Pipe {
	return s.pipe.Swap(p)
}

// Pipe returns the current pipe, or nil.
func (s *Switch) Pipe() *Pipe {
	return s.pipe.Load()
}

// Submit submits info through the current transport.
func (s *Switch) Submit(ctx context.Context, info delivery.MessageInfo) ([]swarm.Operation, error) {
	if p := s.pipe.Load(); p != nil {
		return p.Submit(ctx, info)
	}
	return s.fallback.Submit(ctx, info)
}
