// Package state defines the monitor run state machine.
package state

import "fmt"

// MonitorState represents the process-wide run state of the monitor loop.
type MonitorState int32

const (
	// StateIdle means no monitor loop is active.
	StateIdle MonitorState = iota
	// StateRunning means exactly one monitor loop owns the polling cycle.
	StateRunning
)

// String returns the string representation of the state.
func (s MonitorState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[MonitorState][]MonitorState{
	StateIdle:    {StateRunning},
	StateRunning: {StateIdle},
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s MonitorState) CanTransitionTo(target MonitorState) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target states from the current state.
func (s MonitorState) ValidTransitions() []MonitorState {
	return validTransitions[s]
}

// IsActive returns true while a monitor loop is running.
func (s MonitorState) IsActive() bool {
	return s == StateRunning
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   MonitorState
	To     MonitorState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to MonitorState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
