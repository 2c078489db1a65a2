// Package status mirrors the lifecycle of the remote session as reported by the
// automation host.
package status

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wppweb/internal/bus"
)

// State represents a session lifecycle state.
type State string

const (
	Initializing   State = "INITIALIZING"
	Authenticating State = "AUTHENTICATING"
	Ready          State = "READY"
	Disconnected   State = "DISCONNECTED"
	Failed         State = "FAILED"
)

// ErrInvalidTransition is returned for a transition the table does not allow.
var ErrInvalidTransition = errors.New("invalid transition")

// validTransitions defines allowed state transitions. Disconnected is terminal;
// Failed only accepts the host's final teardown.
var validTransitions = map[State][]State{
	Initializing:   {Authenticating, Ready, Disconnected},
	Authenticating: {Ready, Failed, Disconnected},
	Ready:          {Authenticating, Disconnected},
	Failed:         {Disconnected},
	Disconnected:   {},
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// Machine tracks and enforces session state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Initializing state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Initializing,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is currently in s.
func (m *Machine) Is(s State) bool {
	return m.Current() == s
}

// Transition attempts to move to a new state. Returns an error matching
// ErrInvalidTransition if the table does not allow it.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
