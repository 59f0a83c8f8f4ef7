// Package presentation provides the terminal front end: a console reporter
// for bus events and an interactive command shell.
package presentation

import (
	"fmt"
	"io"
	"sync"
	"time"

	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
)

// Console prints bus events as timestamped lines.
type Console struct {
	out     io.Writer
	verbose bool
	now     func() time.Time
	mu      sync.Mutex

	bus            eventbus.EventBus
	subscriptionID string
}

// ConsoleConfig holds configuration for Console.
type ConsoleConfig struct {
	Out io.Writer
	// Verbose also prints cycle statistics, store changes and probe results
	Verbose bool
}

// NewConsole creates a console reporter.
func NewConsole(cfg ConsoleConfig) *Console {
	return &Console{out: cfg.Out, verbose: cfg.Verbose, now: time.Now}
}

// Attach subscribes the console to bus.
func (c *Console) Attach(bus eventbus.EventBus) {
	c.bus = bus
	c.subscriptionID = bus.Subscribe(c.HandleEvent)
}

// Close unsubscribes from the event bus.
func (c *Console) Close() {
	if c.bus != nil && c.subscriptionID != "" {
		c.bus.Unsubscribe(c.subscriptionID)
		c.subscriptionID = ""
	}
}

// Printf writes one timestamped line.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] %s\n", c.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// HandleEvent prints e if it has a console form.
func (c *Console) HandleEvent(e event.Event) {
	if line, ok := c.format(e); ok {
		c.Printf("%s", line)
	}
}

func (c *Console) format(e event.Event) (string, bool) {
	switch evt := e.(type) {
	case *event.MonitorStarted:
		return fmt.Sprintf("Monitoring started: set %q, %d regions", evt.SetName, evt.RegionCount), true
	case *event.MonitorStopped:
		if evt.Error != nil {
			return fmt.Sprintf("Monitoring stopped (%s) after %d cycles: %v", evt.Reason, evt.Cycles, evt.Error), true
		}
		return fmt.Sprintf("Monitoring stopped (%s) after %d cycles", evt.Reason, evt.Cycles), true
	case *event.RegionTriggered:
		if evt.Reason == "compare" {
			return fmt.Sprintf("Region %s matched its comparison region: %q", evt.RegionName(), evt.DetectedText), true
		}
		return fmt.Sprintf("Region %s detected %q", evt.RegionName(), evt.DetectedText), true
	case *event.RegionFailed:
		return fmt.Sprintf("Region %s %s error: %v", evt.RegionName(), evt.Stage, evt.Error), true
	case *event.ActionFailed:
		return fmt.Sprintf("Region %s action %d (%s) failed: %v", evt.RegionName(), evt.Index+1, evt.Kind, evt.Error), true
	case *event.ActionsCompleted:
		if evt.Skipped > 0 || evt.Failed > 0 {
			return fmt.Sprintf("Region %s actions: %d run, %d failed, %d skipped",
				evt.RegionName(), evt.Executed, evt.Failed, evt.Skipped), true
		}
		return "", false
	case *event.RegionProbed:
		// The shell prints its own probe results.
		if !c.verbose {
			return "", false
		}
		if evt.Error != nil {
			return fmt.Sprintf("Test %s failed: %v", evt.RegionName(), evt.Error), true
		}
		verdict := "no match"
		if evt.Triggered {
			verdict = "would trigger (" + evt.Reason + ")"
		}
		if evt.ComparisonText != "" {
			return fmt.Sprintf("Test %s: %q vs %q, %s", evt.RegionName(), evt.Text, evt.ComparisonText, verdict), true
		}
		return fmt.Sprintf("Test %s: %q, %s", evt.RegionName(), evt.Text, verdict), true
	case *event.CycleCompleted:
		if !c.verbose {
			return "", false
		}
		return fmt.Sprintf("Cycle %d: %d evaluated, %d triggered, %d failed in %s",
			evt.Cycle, evt.Evaluated, evt.Triggered, evt.Failed, evt.Duration.Round(time.Millisecond)), true
	case *event.RegionSetChanged:
		if !c.verbose {
			return "", false
		}
		return fmt.Sprintf("Region set %q: %s", evt.SetName, evt.Op), true
	default:
		return "", false
	}
}
