package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/diogocavaiar/session-android/internal/bus"
)

// KindStatusChanged is published on every transition.
const KindStatusChanged = "pipe.status_changed"

// State is the state of the private-chat transport.
type State string

const (
	Booting      State = "BOOTING"
	Direct       State = "DIRECT"
	Connecting   State = "CONNECTING"
	Ready        State = "READY"
	Reconnecting State = "RECONNECTING"
	Degraded     State = "DEGRADED"
	Error        State = "ERROR"
)

// validTransitions defines allowed state transitions. DIRECT means no pipe
// is configured and submissions go straight to the storage nodes; DEGRADED
// means the pipe is down and submissions fall back to the nodes while it is
// redialed.
var validTransitions = map[State][]State{
	Booting:      {Direct, Connecting, Error},
	Direct:       {Connecting, Error},
	Connecting:   {Ready, Degraded, Error},
	Ready:        {Reconnecting, Direct, Error},
	Reconnecting: {Connecting, Degraded, Error},
	Degraded:     {Connecting, Reconnecting, Direct, Error},
	Error:        {Booting},
}

// Machine tracks and enforces transport state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		since:   time.Now(),
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns the current state and when it was entered.
func (m *Machine) Snapshot() (State, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.since
}

// Transition moves to state to, or returns an error if validTransitions
// does not allow it. Every accepted transition is published on the bus.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      KindStatusChanged,
			Timestamp: m.since,
			Payload:   StatusChange{From: from, To: to},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
