// Package application wires the region store, the monitor and the trigger
// history together and executes commands against them.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"textmacro-go/application/monitor"
	"textmacro-go/core/command"
	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
	"textmacro-go/core/state"
	"textmacro-go/domain/region"
	"textmacro-go/domain/regionset"
	"textmacro-go/infrastructure/repository"
)

// ErrStopTimeout is returned when the monitor worker did not exit within its
// stop timeout. The monitor is idle regardless.
var ErrStopTimeout = errors.New("monitor worker still busy after stop timeout")

// ErrNoMonitor is returned for monitor commands when the coordinator was
// created for region editing only.
var ErrNoMonitor = errors.New("monitor not available")

// MonitorController is the part of monitor.Monitor the coordinator drives.
type MonitorController interface {
	Start(ctx context.Context) error
	Stop() bool
	EmergencyStop() bool
	IsRunning() bool
	Status() monitor.Status
	Probe(ctx context.Context, r region.Region) (monitor.ProbeResult, error)
}

// TriggerRecorder stores triggers.
type TriggerRecorder interface {
	Record(ctx context.Context, rec repository.TriggerRecord) (repository.TriggerRecord, error)
}

// Coordinator routes commands to the region store and the monitor.
type Coordinator struct {
	store    *regionset.Store
	monitor  MonitorController
	history  TriggerRecorder
	eventBus eventbus.EventBus
	logger   *slog.Logger

	subscriptionID string

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	Store    *regionset.Store
	Monitor  MonitorController // optional; nil for editing only
	History  TriggerRecorder   // optional
	EventBus eventbus.EventBus
	Logger   *slog.Logger
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(cfg *CoordinatorConfig) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, errors.New("region store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		store:    cfg.Store,
		monitor:  cfg.Monitor,
		history:  cfg.History,
		eventBus: cfg.EventBus,
		logger:   cfg.Logger.With("component", "coordinator"),
		ctx:      ctx,
		cancel:   cancel,
	}

	if c.eventBus != nil && c.history != nil {
		c.subscriptionID = c.eventBus.Subscribe(c.handleEvent)
	}

	return c, nil
}

// Store returns the region store.
func (c *Coordinator) Store() *regionset.Store {
	return c.store
}

// Status returns the monitor status. Without a monitor it is always Idle.
func (c *Coordinator) Status() monitor.Status {
	if c.monitor == nil {
		return monitor.Status{State: state.StateIdle}
	}
	return c.monitor.Status()
}

// Stop stops the monitor and detaches from the event bus.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		if c.monitor != nil && c.monitor.IsRunning() && !c.monitor.Stop() {
			c.logger.Warn("Monitor did not stop in time")
		}
		c.cancel()
		if c.subscriptionID != "" {
			c.eventBus.Unsubscribe(c.subscriptionID)
		}
		c.logger.Info("Coordinator stopped")
	})
}

// Dispatch executes a command.
func (c *Coordinator) Dispatch(ctx context.Context, cmd command.Command) error {
	c.logger.Debug("Dispatching command", "command", cmd.CommandName())

	switch cmd := cmd.(type) {
	// Monitor lifecycle
	case *command.StartMonitor:
		return c.handleStartMonitor(cmd)
	case *command.StopMonitor:
		if c.monitor == nil {
			return nil
		}
		return c.handleStop(c.monitor.Stop)
	case *command.EmergencyStop:
		if c.monitor == nil {
			return nil
		}
		return c.handleStop(c.monitor.EmergencyStop)
	case *command.ToggleMonitor:
		if c.monitor != nil && c.monitor.IsRunning() {
			return c.handleStop(c.monitor.Stop)
		}
		return c.handleStartMonitor(&command.StartMonitor{})
	case *command.ProbeRegion:
		_, err := c.Probe(ctx, cmd.RegionName())
		return err

	// Region sets
	case *command.SaveSet:
		regions := cmd.Regions
		if regions == nil {
			regions = c.store.Active()
		}
		return c.store.SaveAsSet(cmd.Name, regions)
	case *command.LoadSet:
		_, err := c.store.LoadSet(cmd.Name)
		return err
	case *command.DeleteSet:
		return c.store.DeleteSet(cmd.Name)

	// Active set editing
	case *command.AddRegion:
		return c.store.AddRegion(cmd.Region)
	case *command.UpdateRegion:
		return c.store.UpdateRegion(cmd.RegionName(), cmd.Region)
	case *command.RemoveRegion:
		return c.store.RemoveRegion(cmd.RegionName())
	case *command.SetRegionEnabled:
		return c.store.SetRegionEnabled(cmd.RegionName(), cmd.Enabled)
	case *command.ClearRegions:
		return c.store.ClearActive()

	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
}

// Probe checks one region of the active set once and publishes the outcome.
func (c *Coordinator) Probe(ctx context.Context, regionName string) (monitor.ProbeResult, error) {
	if c.monitor == nil {
		return monitor.ProbeResult{Region: regionName}, ErrNoMonitor
	}
	r, ok := c.findActive(regionName)
	if !ok {
		return monitor.ProbeResult{Region: regionName}, fmt.Errorf("%w: %s", regionset.ErrRegionNotFound, regionName)
	}

	res, err := c.monitor.Probe(ctx, r)
	c.publish(event.NewRegionProbed(regionName, res.Text, res.ComparisonText,
		res.Decision.Triggered, res.Decision.Reason.String(), err))
	return res, err
}

func (c *Coordinator) handleStartMonitor(cmd *command.StartMonitor) error {
	if c.monitor == nil {
		return ErrNoMonitor
	}
	if cmd.SetName != "" && cmd.SetName != c.store.ActiveName() {
		if c.monitor.IsRunning() {
			return fmt.Errorf("%w: stop before switching to set %s", monitor.ErrAlreadyRunning, cmd.SetName)
		}
		if _, err := c.store.LoadSet(cmd.SetName); err != nil && !errors.Is(err, regionset.ErrPersist) {
			return err
		}
	}
	return c.monitor.Start(c.ctx)
}

func (c *Coordinator) handleStop(stop func() bool) error {
	if !stop() {
		return ErrStopTimeout
	}
	return nil
}

func (c *Coordinator) findActive(name string) (region.Region, bool) {
	for _, r := range c.store.Active() {
		if r.Name == name {
			return r, true
		}
	}
	return region.Region{}, false
}

// handleEvent records triggers to the history.
func (c *Coordinator) handleEvent(e event.Event) {
	evt, ok := e.(*event.RegionTriggered)
	if !ok {
		return
	}
	_, err := c.history.Record(c.ctx, repository.TriggerRecord{
		RunID:          evt.RunID,
		SetName:        evt.SetName,
		Region:         evt.RegionName(),
		Reason:         evt.Reason,
		DetectedText:   evt.DetectedText,
		ComparisonText: evt.ComparisonText,
		At:             evt.At,
	})
	if err != nil && c.ctx.Err() == nil {
		c.logger.Warn("Failed to record trigger", "region", evt.RegionName(), "error", err)
	}
}

func (c *Coordinator) publish(e event.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(e)
	}
}
