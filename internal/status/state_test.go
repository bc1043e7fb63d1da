package status

import (
	"testing"

	"github.com/sakhihub/sakhi/internal/bus"
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
		{Booting, AuthRequired},
		{Booting, Connecting},
		{Booting, Error},
		{AuthRequired, Connecting},
		{Connecting, Ready},
		{Ready, Reconnecting},
		{Ready, Offline},
		{Reconnecting, Connecting},
		{Offline, Connecting},
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
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(BOOTING -> READY) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(AuthRequired); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "session.status_changed" {
		t.Errorf("event kind = %q, want session.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != AuthRequired {
		t.Errorf("change = %v -> %v, want BOOTING -> AUTH_REQUIRED", change.From, change.To)
	}
}

// TestFirstLoginLifecycle simulates a fresh profile with no stored token:
// BOOTING → AUTH_REQUIRED → CONNECTING → READY
func TestFirstLoginLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{AuthRequired, Connecting, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// TestDropAndRecoverCycle verifies the reconnect loop:
// READY → RECONNECTING → CONNECTING → READY
func TestDropAndRecoverCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	steps := []State{Reconnecting, Connecting, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want READY", m.Current())
	}
}

// TestOfflineResumes verifies a network outage mid-session and recovery:
// READY → OFFLINE → CONNECTING → READY
func TestOfflineResumes(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	steps := []State{Offline, Connecting, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// TestReconnectExhaustionGoesOffline: when bounded reconnection gives up, the
// daemon parks in OFFLINE rather than ERROR so a later connectivity edge can
// revive it.
func TestReconnectExhaustionGoesOffline(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	if err := m.Transition(Reconnecting); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(Offline); err != nil {
		t.Fatalf("RECONNECTING -> OFFLINE: %v", err)
	}
	if err := m.Transition(Connecting); err != nil {
		t.Fatalf("OFFLINE -> CONNECTING: %v", err)
	}
}

func TestLoggedOutFromReady(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	if err := m.Transition(AuthRequired); err != nil {
		t.Fatalf("READY -> AUTH_REQUIRED: %v", err)
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:      {},
		AuthRequired: {AuthRequired},
		Connecting:   {AuthRequired, Connecting},
		Ready:        {Connecting, Ready},
		Reconnecting: {Connecting, Ready, Reconnecting},
		Offline:      {Connecting, Ready, Offline},
		Error:        {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
