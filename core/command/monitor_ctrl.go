package command

// StartMonitor starts monitoring the active set, optionally loading SetName first.
type StartMonitor struct {
	SetName string
}

func (c *StartMonitor) CommandName() string {
	return "StartMonitor"
}

// StopMonitor stops a running monitor.
type StopMonitor struct{}

func (c *StopMonitor) CommandName() string {
	return "StopMonitor"
}

// EmergencyStop stops a running monitor immediately.
type EmergencyStop struct{}

func (c *EmergencyStop) CommandName() string {
	return "EmergencyStop"
}

// ToggleMonitor stops a running monitor or starts an idle one.
type ToggleMonitor struct{}

func (c *ToggleMonitor) CommandName() string {
	return "ToggleMonitor"
}

// ProbeRegion checks one region of the active set once without running its actions.
type ProbeRegion struct {
	baseRegionCommand
}

func NewProbeRegion(regionName string) *ProbeRegion {
	return &ProbeRegion{baseRegionCommand{regionName: regionName}}
}

func (c *ProbeRegion) CommandName() string {
	return "ProbeRegion"
}
