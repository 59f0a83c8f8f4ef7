// Package event defines all events that can be published by the application.
// Events represent state changes and are consumed by the presentation layer.
package event

import (
	"time"

	"textmacro-go/core/state"
)

// Event is the base interface for all events.
// Events are published by the application layer and consumed by subscribers.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// RegionEvent is an event that originates from a specific monitored region.
type RegionEvent interface {
	Event
	// RegionName returns the source region name
	RegionName() string
}

// baseRegionEvent provides common implementation for region events.
type baseRegionEvent struct {
	regionName string
}

func (e *baseRegionEvent) RegionName() string {
	return e.regionName
}

// StopReason indicates why a monitor run ended.
type StopReason int

const (
	// StopReasonManual indicates the run was stopped by the user.
	StopReasonManual StopReason = iota
	// StopReasonEmergency indicates the run was stopped by an emergency stop.
	StopReasonEmergency
	// StopReasonCancelled indicates the parent context was cancelled.
	StopReasonCancelled
	// StopReasonError indicates the run ended due to an unrecoverable error.
	StopReasonError
)

func (r StopReason) String() string {
	switch r {
	case StopReasonManual:
		return "Manual"
	case StopReasonEmergency:
		return "Emergency"
	case StopReasonCancelled:
		return "Cancelled"
	case StopReasonError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MonitorStarted is published when a monitor run starts.
type MonitorStarted struct {
	RunID       string
	SetName     string
	RegionCount int
}

func NewMonitorStarted(runID, setName string, regionCount int) *MonitorStarted {
	return &MonitorStarted{RunID: runID, SetName: setName, RegionCount: regionCount}
}

func (e *MonitorStarted) EventName() string {
	return "MonitorStarted"
}

// MonitorStopped is published when the monitor worker exits.
type MonitorStopped struct {
	RunID   string
	SetName string
	Reason  StopReason
	Cycles  int
	Error   error // Non-nil if Reason is StopReasonError
}

func NewMonitorStopped(runID, setName string, reason StopReason, cycles int, err error) *MonitorStopped {
	return &MonitorStopped{RunID: runID, SetName: setName, Reason: reason, Cycles: cycles, Error: err}
}

func (e *MonitorStopped) EventName() string {
	return "MonitorStopped"
}

// MonitorStateChanged is published when the run state changes.
type MonitorStateChanged struct {
	OldState state.MonitorState
	NewState state.MonitorState
}

func NewMonitorStateChanged(oldState, newState state.MonitorState) *MonitorStateChanged {
	return &MonitorStateChanged{OldState: oldState, NewState: newState}
}

func (e *MonitorStateChanged) EventName() string {
	return "MonitorStateChanged"
}

// CycleCompleted is published after every full (or aborted) region pass.
type CycleCompleted struct {
	RunID     string
	Cycle     int
	Duration  time.Duration
	Evaluated int
	Triggered int
	Failed    int
	Aborted   bool
}

func (e *CycleCompleted) EventName() string {
	return "CycleCompleted"
}

// RegionSetChanged is published when the region store is mutated.
type RegionSetChanged struct {
	SetName string
	Op      string
}

func NewRegionSetChanged(setName, op string) *RegionSetChanged {
	return &RegionSetChanged{SetName: setName, Op: op}
}

func (e *RegionSetChanged) EventName() string {
	return "RegionSetChanged"
}
