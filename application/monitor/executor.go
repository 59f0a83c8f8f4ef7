package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"textmacro-go/domain/region"
	"textmacro-go/infrastructure/logging"
)

// DefaultActionDelay is the settle time inserted after every action.
const DefaultActionDelay = 100 * time.Millisecond

// ActionErrorFunc is called when a single action fails.
type ActionErrorFunc func(regionName string, index int, action region.Action, err error)

// ExecutorConfig holds configuration for Executor.
type ExecutorConfig struct {
	Injector    InputInjector
	ActionDelay time.Duration
	Logger      *slog.Logger
	OnError     ActionErrorFunc
}

// Executor runs a region's action list through an InputInjector.
type Executor struct {
	injector InputInjector
	delay    time.Duration
	logger   *slog.Logger
	onError  ActionErrorFunc
}

// RunResult summarizes one action list run.
type RunResult struct {
	Executed int
	Failed   int
	Skipped  int
}

// NewExecutor creates a new action executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ActionDelay < 0 {
		cfg.ActionDelay = 0
	}
	return &Executor{
		injector: cfg.Injector,
		delay:    cfg.ActionDelay,
		logger:   cfg.Logger,
		onError:  cfg.OnError,
	}
}

// Run executes actions in order. A failing action is logged and skipped;
// cancellation of ctx skips every action not yet started.
// A logger carried by ctx (see logging.With) takes precedence over the
// configured one.
func (e *Executor) Run(ctx context.Context, regionName string, actions []region.Action) RunResult {
	logger := e.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	var res RunResult
	for i, action := range actions {
		if ctx.Err() != nil {
			res.Skipped = len(actions) - i
			logger.Info("Action list cancelled", "region", regionName, "skipped", res.Skipped)
			return res
		}

		if err := e.execute(ctx, action); err != nil {
			res.Failed++
			logger.Error("Action failed",
				"region", regionName,
				"index", i,
				"action", region.Describe(action),
				"error", err)
			if e.onError != nil {
				e.onError(regionName, i, action, err)
			}
		} else {
			res.Executed++
			logger.Debug("Action executed", "region", regionName, "index", i, "action", region.Describe(action))
		}

		sleep(ctx, e.delay)
	}
	return res
}

// execute dispatches a single action to its injector primitive.
func (e *Executor) execute(ctx context.Context, action region.Action) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	switch a := action.(type) {
	case region.Click:
		return e.injector.Click(ctx, a.X, a.Y, a.ButtonOrDefault())
	case region.KeyPress:
		return e.injector.PressKey(ctx, a.Key)
	case region.Hotkey:
		return e.injector.Hotkey(ctx, a.Keys)
	case region.TypeText:
		return e.injector.TypeText(ctx, a.Text)
	case region.Move:
		return e.injector.MoveTo(ctx, a.X, a.Y)
	case region.Scroll:
		return e.injector.Scroll(ctx, a.Clicks)
	case region.Wait:
		sleep(ctx, a.Duration())
		return nil
	case nil:
		return fmt.Errorf("%w: nil action", region.ErrInvalidAction)
	default:
		return fmt.Errorf("%w: %T", region.ErrUnknownActionKind, action)
	}
}

// sleep waits for d or until ctx is done. Returns false if cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
