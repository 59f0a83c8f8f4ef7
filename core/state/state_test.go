package state

import "testing"

func TestMonitorState_String(t *testing.T) {
	tests := []struct {
		state    MonitorState
		expected string
	}{
		{StateIdle, "Idle"},
		{StateRunning, "Running"},
		{MonitorState(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("MonitorState.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMonitorState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     MonitorState
		to       MonitorState
		expected bool
	}{
		{"Idle -> Running", StateIdle, StateRunning, true},
		{"Running -> Idle", StateRunning, StateIdle, true},
		{"Idle -> Idle (invalid)", StateIdle, StateIdle, false},
		{"Running -> Running (invalid)", StateRunning, StateRunning, false},
		{"Unknown -> Idle (invalid)", MonitorState(7), StateIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMonitorState_IsActive(t *testing.T) {
	if StateIdle.IsActive() {
		t.Error("Idle should not be active")
	}
	if !StateRunning.IsActive() {
		t.Error("Running should be active")
	}
}

func TestTransitionError(t *testing.T) {
	err := NewTransitionError(StateRunning, StateRunning, "already running")
	want := "invalid state transition from Running to Running: already running"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = NewTransitionError(StateIdle, StateIdle, "")
	want = "invalid state transition from Idle to Idle"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
