package status

import (
	"testing"
	"time"

	"github.com/diogocavaiar/session-android/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Direct},
		{Booting, Connecting},
		{Booting, Error},
		{Direct, Connecting},
		{Connecting, Ready},
		{Connecting, Degraded},
		{Ready, Reconnecting},
		{Ready, Direct},
		{Reconnecting, Connecting},
		{Degraded, Reconnecting},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, Ready},
		{Direct, Ready},
		{Reconnecting, Ready},
		{Error, Connecting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err == nil {
				t.Errorf("Transition(%s -> %s) should fail", tt.from, tt.to)
			}
			if m.Current() != tt.from {
				t.Errorf("state = %s, want %s (should not have changed)", m.Current(), tt.from)
			}
		})
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("pipe.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Direct); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != KindStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != Direct {
		t.Errorf("change = %v -> %v, want BOOTING -> DIRECT", change.From, change.To)
	}
}

// TestPipeDropAndRecover walks the reconnect loop:
// READY → RECONNECTING → DEGRADED → CONNECTING → READY
func TestPipeDropAndRecover(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	steps := []State{Reconnecting, Degraded, Connecting, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:      {},
		Direct:       {Direct},
		Connecting:   {Connecting},
		Ready:        {Connecting, Ready},
		Reconnecting: {Connecting, Ready, Reconnecting},
		Degraded:     {Connecting, Degraded},
		Error:        {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}

func TestSnapshotTracksTransitionTime(t *testing.T) {
	m := NewMachine(nil)
	_, booted := m.Snapshot()

	time.Sleep(2 * time.Millisecond)
	if err := m.Transition(Direct); err != nil {
		t.Fatal(err)
	}
	state, since := m.Snapshot()
	if state != Direct {
		t.Errorf("state = %s, want %s", state, Direct)
	}
	if !since.After(booted) {
		t.Errorf("since = %v, want after %v", since, booted)
	}

	// A rejected transition leaves the snapshot alone.
	_ = m.Transition(Ready)
	if _, again := m.Snapshot(); !again.Equal(since) {
		t.Errorf("since changed on rejected transition")
	}
}
