// Package hotkey turns global key combinations into monitor commands.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"textmacro-go/core/command"
)

// ErrUnavailable is returned by Start when the build has no keyboard hook.
var ErrUnavailable = errors.New("global hotkeys not available in this build")

// DefaultDebounce drops repeats of the same action fired within this window.
const DefaultDebounce = 300 * time.Millisecond

// Action is what a hotkey does.
type Action int

const (
	ActionToggle Action = iota
	ActionEmergencyStop
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionEmergencyStop:
		return "emergency_stop"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Command returns the command dispatched for a.
func (a Action) Command() command.Command {
	if a == ActionEmergencyStop {
		return &command.EmergencyStop{}
	}
	return &command.ToggleMonitor{}
}

// Binding ties a key combination to an action.
type Binding struct {
	Keys   []string
	Action Action
}

func (b Binding) String() string {
	return strings.Join(b.Keys, "+") + "=" + b.Action.String()
}

// ParseCombo splits "ctrl+alt+x" into lower-case key names.
func ParseCombo(s string) ([]string, error) {
	parts := strings.Split(s, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return nil, fmt.Errorf("hotkey %q: empty key", s)
		}
		keys = append(keys, p)
	}
	return keys, nil
}

// Bindings builds the binding list from a toggle combination and any number
// of stop combinations. An empty toggle leaves toggling unbound.
func Bindings(toggle string, stop []string) ([]Binding, error) {
	var out []Binding
	if toggle != "" {
		keys, err := ParseCombo(toggle)
		if err != nil {
			return nil, err
		}
		out = append(out, Binding{Keys: keys, Action: ActionToggle})
	}
	for _, s := range stop {
		keys, err := ParseCombo(s)
		if err != nil {
			return nil, err
		}
		out = append(out, Binding{Keys: keys, Action: ActionEmergencyStop})
	}
	return out, nil
}

// Dispatcher executes commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) error
}

// backend installs the system keyboard hook. fire is called from the hook's
// own goroutine.
type backend interface {
	start(bindings []Binding, fire func(Action)) error
	stop()
}

// ListenerConfig holds configuration for the Listener.
type ListenerConfig struct {
	Dispatcher Dispatcher
	Bindings   []Binding
	Debounce   time.Duration // zero selects DefaultDebounce
	Logger     *slog.Logger
}

// Listener dispatches a command whenever one of its bindings is pressed.
type Listener struct {
	dispatcher Dispatcher
	bindings   []Binding
	debounce   time.Duration
	logger     *slog.Logger
	backend    backend
	now        func() time.Time

	mu      sync.Mutex
	last    map[Action]time.Time
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewListener creates a listener. Nothing is hooked until Start.
func NewListener(cfg *ListenerConfig) (*Listener, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if len(cfg.Bindings) == 0 {
		return nil, errors.New("at least one hotkey binding is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Listener{
		dispatcher: cfg.Dispatcher,
		bindings:   cfg.Bindings,
		debounce:   cfg.Debounce,
		logger:     cfg.Logger.With("component", "hotkey"),
		backend:    newBackend(),
		now:        time.Now,
		last:       make(map[Action]time.Time),
	}, nil
}

// Start installs the keyboard hook. Commands run under ctx until Close.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("hotkey listener already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	fire := func(a Action) {
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			if err := l.Handle(ctx, a); err != nil {
				l.logger.Warn("Hotkey command failed", "action", a, "error", err)
			}
		}()
	}
	if err := l.backend.start(l.bindings, fire); err != nil {
		cancel()
		return err
	}
	l.cancel = cancel
	l.running = true

	for _, b := range l.bindings {
		l.logger.Info("Hotkey bound", "keys", strings.Join(b.Keys, "+"), "action", b.Action)
	}
	return nil
}

// Close removes the hook and waits for in-flight commands.
func (l *Listener) Close() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	l.backend.stop()
	cancel()
	l.wg.Wait()
	l.logger.Info("Hotkeys released")
	return nil
}

// Handle dispatches the command for a unless the same action fired within
// the debounce window.
func (l *Listener) Handle(ctx context.Context, a Action) error {
	l.mu.Lock()
	now := l.now()
	if last, ok := l.last[a]; ok && now.Sub(last) < l.debounce {
		l.mu.Unlock()
		l.logger.Debug("Hotkey repeat ignored", "action", a)
		return nil
	}
	l.last[a] = now
	l.mu.Unlock()

	l.logger.Info("Hotkey pressed", "action", a)
	return l.dispatcher.Dispatch(ctx, a.Command())
}
