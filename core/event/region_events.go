package event

import "time"

// RegionTriggered is published when a region's match condition holds.
type RegionTriggered struct {
	baseRegionEvent
	RunID          string
	SetName        string
	DetectedText   string
	ComparisonText string
	Reason         string
	At             time.Time
}

func NewRegionTriggered(runID, setName, regionName, detectedText, comparisonText, reason string) *RegionTriggered {
	return &RegionTriggered{
		baseRegionEvent: baseRegionEvent{regionName: regionName},
		RunID:           runID,
		SetName:         setName,
		DetectedText:    detectedText,
		ComparisonText:  comparisonText,
		Reason:          reason,
		At:              time.Now(),
	}
}

func (e *RegionTriggered) EventName() string {
	return "RegionTriggered"
}

// RegionFailed is published when capture or recognition fails for a region.
type RegionFailed struct {
	baseRegionEvent
	RunID string
	Stage string
	Error error
}

func NewRegionFailed(runID, regionName, stage string, err error) *RegionFailed {
	return &RegionFailed{
		baseRegionEvent: baseRegionEvent{regionName: regionName},
		RunID:           runID,
		Stage:           stage,
		Error:           err,
	}
}

func (e *RegionFailed) EventName() string {
	return "RegionFailed"
}

// ActionFailed is published when a single action cannot be injected.
type ActionFailed struct {
	baseRegionEvent
	Index int
	Kind  string
	Error error
}

func NewActionFailed(regionName string, index int, kind string, err error) *ActionFailed {
	return &ActionFailed{
		baseRegionEvent: baseRegionEvent{regionName: regionName},
		Index:           index,
		Kind:            kind,
		Error:           err,
	}
}

func (e *ActionFailed) EventName() string {
	return "ActionFailed"
}

// ActionsCompleted is published after a triggered region's action list ran.
type ActionsCompleted struct {
	baseRegionEvent
	Executed int
	Failed   int
	Skipped  int
}

func NewActionsCompleted(regionName string, executed, failed, skipped int) *ActionsCompleted {
	return &ActionsCompleted{
		baseRegionEvent: baseRegionEvent{regionName: regionName},
		Executed:        executed,
		Failed:          failed,
		Skipped:         skipped,
	}
}

func (e *ActionsCompleted) EventName() string {
	return "ActionsCompleted"
}

// RegionProbed is published with the outcome of a one-shot region check.
type RegionProbed struct {
	baseRegionEvent
	Text           string
	ComparisonText string
	Triggered      bool
	Reason         string
	Error          error // Non-nil if capture or recognition failed
}

func NewRegionProbed(regionName, text, comparisonText string, triggered bool, reason string, err error) *RegionProbed {
	return &RegionProbed{
		baseRegionEvent: baseRegionEvent{regionName: regionName},
		Text:            text,
		ComparisonText:  comparisonText,
		Triggered:       triggered,
		Reason:          reason,
		Error:           err,
	}
}

func (e *RegionProbed) EventName() string {
	return "RegionProbed"
}
