package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
	"textmacro-go/core/state"
	"textmacro-go/domain/region"
	"textmacro-go/infrastructure/logging"
)

const (
	DefaultCheckInterval = time.Second
	DefaultStopTimeout   = 2 * time.Second
	DefaultLanguage      = "jpn+eng"
)

// Hooks are invoked synchronously from the worker goroutine.
type Hooks struct {
	OnTriggered   func(regionName, detectedText string)
	OnRegionError func(regionName string, err error)
}

// Config holds configuration for Monitor.
type Config struct {
	Capture    ScreenCapture
	Recognizer TextRecognizer
	Injector   InputInjector
	Source     RegionSource

	EventBus eventbus.EventBus
	Logger   *slog.Logger
	Hooks    Hooks

	CheckInterval time.Duration
	StopTimeout   time.Duration
	Language      string

	// ActionDelay is the pause after every action. Nil selects
	// DefaultActionDelay; zero disables the pause.
	ActionDelay *time.Duration
}

// Status is a point-in-time view of the monitor.
type Status struct {
	State     state.MonitorState
	RunID     string
	SetName   string
	Cycles    int64
	StartedAt time.Time
}

// Monitor owns the polling cycle: capture, recognize, evaluate and run
// actions for every enabled region, then sleep, until stopped.
type Monitor struct {
	cfg      Config
	logger   *slog.Logger
	executor *Executor

	state  atomic.Int32
	cycles atomic.Int64

	// Lifecycle, guarded by mu
	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	runID      string
	setName    string
	startedAt  time.Time
	stopReason event.StopReason
}

// New creates a new monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.Capture == nil {
		return nil, errors.New("screen capture is required")
	}
	if cfg.Recognizer == nil {
		return nil, errors.New("text recognizer is required")
	}
	if cfg.Injector == nil {
		return nil, errors.New("input injector is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("region source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.ActionDelay == nil {
		d := DefaultActionDelay
		cfg.ActionDelay = &d
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	m := &Monitor{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "monitor"),
	}
	m.executor = NewExecutor(ExecutorConfig{
		Injector:    cfg.Injector,
		ActionDelay: *cfg.ActionDelay,
		Logger:      m.logger,
		OnError:     m.onActionError,
	})
	return m, nil
}

// Start begins monitoring the active set and returns immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == state.StateRunning {
		m.logger.Warn("Monitor already running", "run_id", m.runID)
		return ErrAlreadyRunning
	}
	if m.done != nil {
		select {
		case <-m.done:
		default:
			// A stopped run that timed out is still draining.
			return fmt.Errorf("%w: previous run %s is still stopping", ErrAlreadyRunning, m.runID)
		}
	}

	regions := m.cfg.Source.Active()
	if len(regions) == 0 {
		m.logger.Warn("No regions to monitor", "set", m.cfg.Source.ActiveName())
		return ErrNoRegions
	}
	if !m.cfg.Recognizer.Available() {
		m.logger.Warn("Text recognizer unavailable, every region will report recognition errors",
			"engine", m.cfg.Recognizer.Name())
	}

	if !m.state.CompareAndSwap(int32(state.StateIdle), int32(state.StateRunning)) {
		return state.NewTransitionError(m.State(), state.StateRunning, "concurrent start")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.runID = uuid.NewString()
	m.setName = m.cfg.Source.ActiveName()
	m.startedAt = time.Now()
	m.stopReason = event.StopReasonCancelled
	m.cycles.Store(0)

	go m.run(runCtx, m.runID, m.setName, m.done)

	m.logger.Info("Monitor started", "run_id", m.runID, "set", m.setName, "regions", len(regions))
	m.publish(event.NewMonitorStateChanged(state.StateIdle, state.StateRunning))
	m.publish(event.NewMonitorStarted(m.runID, m.setName, len(regions)))
	return nil
}

// Stop requests cancellation and waits up to the stop timeout for the worker
// to exit. It returns false if the worker was still busy when the timeout
// elapsed; the monitor is Idle either way and the worker exits on its next
// cancellation check.
func (m *Monitor) Stop() bool {
	return m.stop(event.StopReasonManual)
}

// EmergencyStop is Stop with an emergency reason attached to the stop event.
func (m *Monitor) EmergencyStop() bool {
	return m.stop(event.StopReasonEmergency)
}

func (m *Monitor) stop(reason event.StopReason) bool {
	m.mu.Lock()
	if !m.state.CompareAndSwap(int32(state.StateRunning), int32(state.StateIdle)) {
		m.mu.Unlock()
		return true
	}
	m.stopReason = reason
	if m.cancel != nil {
		m.cancel()
	}
	done := m.done
	runID := m.runID
	m.mu.Unlock()

	m.publish(event.NewMonitorStateChanged(state.StateRunning, state.StateIdle))

	t := time.NewTimer(m.cfg.StopTimeout)
	defer t.Stop()
	select {
	case <-done:
		m.logger.Info("Monitor stopped", "run_id", runID, "reason", reason)
		return true
	case <-t.C:
		m.logger.Warn("Monitor stop timeout, worker will exit after the current call returns",
			"run_id", runID, "timeout", m.cfg.StopTimeout)
		return false
	}
}

// IsRunning returns true while a run is active.
func (m *Monitor) IsRunning() bool {
	return m.State() == state.StateRunning
}

// State returns the current run state.
func (m *Monitor) State() state.MonitorState {
	return state.MonitorState(m.state.Load())
}

// Status returns a snapshot of the current run.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:     m.State(),
		RunID:     m.runID,
		SetName:   m.setName,
		Cycles:    m.cycles.Load(),
		StartedAt: m.startedAt,
	}
}

// Done returns a channel closed when the current (or last) worker exits.
// Returns nil if the monitor never started.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// run is the worker loop.
func (m *Monitor) run(ctx context.Context, runID, setName string, done chan struct{}) {
	defer close(done)
	ctx = logging.With(ctx, m.logger.With("run_id", runID))

	var stopErr error
	defer func() {
		if rec := recover(); rec != nil {
			m.logger.Error("Monitor worker panicked", "run_id", runID, "error", rec)
			stopErr = fmt.Errorf("panic: %v", rec)
		}
		m.finish(runID, setName, stopErr)
	}()

	for cycle := 1; ; cycle++ {
		if ctx.Err() != nil {
			return
		}

		setName = m.runCycle(ctx, runID, cycle)
		m.cycles.Add(1)

		if !sleep(ctx, m.cfg.CheckInterval) {
			return
		}
	}
}

// finish moves the monitor to Idle if it exited on its own and publishes
// the stop event.
func (m *Monitor) finish(runID, setName string, stopErr error) {
	if m.state.CompareAndSwap(int32(state.StateRunning), int32(state.StateIdle)) {
		m.publish(event.NewMonitorStateChanged(state.StateRunning, state.StateIdle))
	}

	m.mu.Lock()
	reason := m.stopReason
	if stopErr != nil {
		reason = event.StopReasonError
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	cycles := int(m.cycles.Load())
	m.logger.Info("Monitor worker exited", "run_id", runID, "reason", reason, "cycles", cycles)
	m.publish(event.NewMonitorStopped(runID, setName, reason, cycles, stopErr))
}

// runCycle makes one pass over a snapshot of the active regions and returns
// the name of the set it evaluated. Loading another set while running takes
// effect on the next cycle.
func (m *Monitor) runCycle(ctx context.Context, runID string, cycle int) string {
	started := time.Now()
	setName := m.cfg.Source.ActiveName()
	regions := m.cfg.Source.Active()

	m.mu.Lock()
	if m.runID == runID && m.setName != setName {
		m.logger.Info("Active set changed", "run_id", runID, "from", m.setName, "to", setName)
		m.setName = setName
	}
	m.mu.Unlock()
	stats := &event.CycleCompleted{RunID: runID, Cycle: cycle}

	for i := range regions {
		if ctx.Err() != nil {
			stats.Aborted = true
			break
		}
		r := &regions[i]
		if !r.Enabled {
			continue
		}
		stats.Evaluated++
		triggered, failed := m.processRegion(ctx, runID, setName, r)
		if triggered {
			stats.Triggered++
		}
		stats.Failed += failed
	}

	stats.Duration = time.Since(started)
	m.logger.Debug("Cycle completed",
		"run_id", runID,
		"cycle", cycle,
		"evaluated", stats.Evaluated,
		"triggered", stats.Triggered,
		"duration", stats.Duration)
	m.publish(stats)
	return setName
}

// processRegion evaluates one region and runs its actions when it triggers.
// It never panics; every failure is reported as a RegionError.
func (m *Monitor) processRegion(ctx context.Context, runID, setName string, r *region.Region) (triggered bool, failed int) {
	defer func() {
		if rec := recover(); rec != nil {
			failed++
			m.reportRegionError(runID, r.Name, StagePanic, fmt.Errorf("%v", rec))
		}
	}()

	primary, ok := m.readText(ctx, runID, r.Name, r.Rect, StageCapture, StageRecognize, &failed)
	if !ok {
		return false, failed
	}

	var comparison string
	if r.CompareEnabled && r.CompareRegion != nil && primary != "" {
		comparison, _ = m.readText(ctx, runID, r.Name, *r.CompareRegion, StageCompareCapture, StageCompareRecognize, &failed)
	}

	m.logger.Debug("Region recognized", "region", r.Name, "text", primary, "comparison", comparison)

	decision := region.Decide(primary, r, comparison)
	if !decision.Triggered {
		return false, failed
	}

	m.logger.Info("Region triggered",
		"region", r.Name,
		"reason", decision.Reason,
		"text", primary)
	m.publish(event.NewRegionTriggered(runID, setName, r.Name, primary, comparison, decision.Reason.String()))
	if m.cfg.Hooks.OnTriggered != nil {
		m.cfg.Hooks.OnTriggered(r.Name, primary)
	}

	res := m.executor.Run(ctx, r.Name, r.Actions)
	m.publish(event.NewActionsCompleted(r.Name, res.Executed, res.Failed, res.Skipped))
	return true, failed + res.Failed
}

// readText captures rect and recognizes its text. A capture failure returns
// ok=false; a recognition failure returns empty text with ok=true.
func (m *Monitor) readText(ctx context.Context, runID, name string, rect region.Rect, captureStage, recognizeStage Stage, failed *int) (string, bool) {
	img, err := m.cfg.Capture.Capture(ctx, rect)
	if err != nil {
		if ctx.Err() == nil {
			*failed++
			m.reportRegionError(runID, name, captureStage, err)
		}
		return "", false
	}

	text, err := m.cfg.Recognizer.Recognize(ctx, img, m.cfg.Language)
	if err != nil {
		if ctx.Err() == nil {
			*failed++
			m.reportRegionError(runID, name, recognizeStage, err)
		}
		return "", true
	}
	return text, true
}

func (m *Monitor) reportRegionError(runID, name string, stage Stage, err error) {
	rerr := &RegionError{Region: name, Stage: stage, Err: err}
	m.logger.Warn("Region processing failed", "region", name, "stage", stage, "error", err)
	m.publish(event.NewRegionFailed(runID, name, string(stage), err))
	if m.cfg.Hooks.OnRegionError != nil {
		m.cfg.Hooks.OnRegionError(name, rerr)
	}
}

func (m *Monitor) onActionError(regionName string, index int, action region.Action, err error) {
	kind := "unknown"
	if action != nil {
		kind = string(action.Kind())
	}
	m.publish(event.NewActionFailed(regionName, index, kind, err))
	if m.cfg.Hooks.OnRegionError != nil {
		m.cfg.Hooks.OnRegionError(regionName, &RegionError{
			Region: regionName,
			Stage:  StageAction,
			Err:    fmt.Errorf("action %d (%s): %w", index, kind, err),
		})
	}
}

func (m *Monitor) publish(e event.Event) {
	if m.cfg.EventBus != nil {
		m.cfg.EventBus.Publish(e)
	}
}
