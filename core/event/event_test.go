package event

import (
	"errors"
	"testing"

	"textmacro-go/core/state"
)

func TestEvent_Names(t *testing.T) {
	tests := []struct {
		event    Event
		expected string
	}{
		{NewMonitorStarted("r1", "default", 3), "MonitorStarted"},
		{NewMonitorStopped("r1", "default", StopReasonManual, 4, nil), "MonitorStopped"},
		{NewMonitorStateChanged(state.StateIdle, state.StateRunning), "MonitorStateChanged"},
		{&CycleCompleted{RunID: "r1", Cycle: 1}, "CycleCompleted"},
		{NewRegionSetChanged("default", "save"), "RegionSetChanged"},
		{NewRegionTriggered("r1", "default", "hp", "Ready", "", "target"), "RegionTriggered"},
		{NewRegionFailed("r1", "hp", "capture", errors.New("test")), "RegionFailed"},
		{NewActionFailed("hp", 0, "click", errors.New("test")), "ActionFailed"},
		{NewActionsCompleted("hp", 2, 0, 1), "ActionsCompleted"},
		{NewRegionProbed("hp", "100", "", false, "none", nil), "RegionProbed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.event.EventName(); got != tt.expected {
				t.Errorf("EventName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRegionEvent_RegionName(t *testing.T) {
	tests := []struct {
		name     string
		event    RegionEvent
		expected string
	}{
		{"RegionTriggered", NewRegionTriggered("r1", "set", "status", "ok", "", "target"), "status"},
		{"RegionFailed", NewRegionFailed("r1", "score", "recognize", nil), "score"},
		{"ActionFailed", NewActionFailed("button", 1, "key", nil), "button"},
		{"ActionsCompleted", NewActionsCompleted("dialog", 1, 1, 0), "dialog"},
		{"RegionProbed", NewRegionProbed("ok", "OK", "", true, "target", nil), "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.RegionName(); got != tt.expected {
				t.Errorf("RegionName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStopReason_String(t *testing.T) {
	tests := []struct {
		reason   StopReason
		expected string
	}{
		{StopReasonManual, "Manual"},
		{StopReasonEmergency, "Emergency"},
		{StopReasonCancelled, "Cancelled"},
		{StopReasonError, "Error"},
		{StopReason(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.expected {
				t.Errorf("StopReason.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMonitorStopped_Error(t *testing.T) {
	testErr := errors.New("worker failed")
	e := NewMonitorStopped("r1", "default", StopReasonError, 2, testErr)

	if e.Error != testErr {
		t.Errorf("Error = %v, want %v", e.Error, testErr)
	}
	if e.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", e.Cycles)
	}
}

func TestRegionTriggered_Timestamp(t *testing.T) {
	e := NewRegionTriggered("r1", "default", "hp", "Ready", "", "target")
	if e.At.IsZero() {
		t.Error("At should be set")
	}
}
