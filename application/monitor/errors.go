package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRegions is returned by Start when the active set is empty.
	ErrNoRegions = errors.New("no regions to monitor")
	// ErrAlreadyRunning is returned by Start while a run is active or still draining.
	ErrAlreadyRunning = errors.New("monitor already running")
)

// Stage names the step of region processing that failed.
type Stage string

const (
	StageCapture          Stage = "capture"
	StageRecognize        Stage = "recognize"
	StageCompareCapture   Stage = "compare_capture"
	StageCompareRecognize Stage = "compare_recognize"
	StageAction           Stage = "action"
	StagePanic            Stage = "panic"
)

// RegionError is a recoverable failure confined to one region.
type RegionError struct {
	Region string
	Stage  Stage
	Err    error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region %s: %s failed: %v", e.Region, e.Stage, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}
