// Package input injects synthetic mouse and keyboard events on the desktop.
package input

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"textmacro-go/domain/region"
)

// ErrNoDesktop is returned by builds that carry no desktop input backend.
var ErrNoDesktop = errors.New("input: desktop input not available in this build")

// backend is the minimal set of OS input primitives.
type backend interface {
	Move(x, y int) error
	Click(button string) error
	KeyDown(key string) error
	KeyUp(key string) error
	KeyTap(key string) error
	Type(text string) error
	Scroll(clicks int) error
}

// keyAliases maps common key spellings to the backend's names.
var keyAliases = map[string]string{
	"return":   "enter",
	"escape":   "esc",
	"del":      "delete",
	"ins":      "insert",
	"pgup":     "pageup",
	"pgdn":     "pagedown",
	"control":  "ctrl",
	"option":   "alt",
	"win":      "cmd",
	"command":  "cmd",
	"super":    "cmd",
	"spacebar": "space",
	"bksp":     "backspace",
}

// NormalizeKey lowercases a key name and resolves aliases.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// Injector performs input actions on the local desktop.
// Calls are serialized so a hotkey is never interleaved with another action.
type Injector struct {
	mu      sync.Mutex
	backend backend
	logger  *slog.Logger
}

// NewInjector creates a desktop injector.
func NewInjector(logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Injector{
		backend: newBackend(),
		logger:  logger.With("component", "input"),
	}
}

// Click moves the pointer to (x, y) and clicks button.
func (in *Injector) Click(ctx context.Context, x, y int, button region.Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if button == "" {
		button = region.ButtonLeft
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.backend.Move(x, y); err != nil {
		return fmt.Errorf("move to (%d,%d): %w", x, y, err)
	}
	if err := in.backend.Click(string(button)); err != nil {
		return fmt.Errorf("click %s: %w", button, err)
	}
	in.logger.Debug("Clicked", "x", x, "y", y, "button", button)
	return nil
}

// PressKey taps a single key.
func (in *Injector) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k := NormalizeKey(key)
	if k == "" {
		return fmt.Errorf("%w: empty key", region.ErrInvalidAction)
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.backend.KeyTap(k); err != nil {
		return fmt.Errorf("press %q: %w", k, err)
	}
	return nil
}

// Hotkey holds every key down in order, then releases them in reverse.
// Keys already pressed are released even when a later press fails.
func (in *Injector) Hotkey(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty hotkey", region.ErrInvalidAction)
	}
	normalized := make([]string, len(keys))
	for i, k := range keys {
		normalized[i] = NormalizeKey(k)
		if normalized[i] == "" {
			return fmt.Errorf("%w: empty key in hotkey", region.ErrInvalidAction)
		}
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	var pressed []string
	var pressErr error
	for _, k := range normalized {
		if err := in.backend.KeyDown(k); err != nil {
			pressErr = fmt.Errorf("hold %q: %w", k, err)
			break
		}
		pressed = append(pressed, k)
	}

	var releaseErrs []error
	for i := len(pressed) - 1; i >= 0; i-- {
		if err := in.backend.KeyUp(pressed[i]); err != nil {
			releaseErrs = append(releaseErrs, fmt.Errorf("release %q: %w", pressed[i], err))
		}
	}

	return errors.Join(append([]error{pressErr}, releaseErrs...)...)
}

// TypeText types text character by character.
func (in *Injector) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.backend.Type(text); err != nil {
		return fmt.Errorf("type text: %w", err)
	}
	return nil
}

// MoveTo moves the pointer without clicking.
func (in *Injector) MoveTo(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.backend.Move(x, y); err != nil {
		return fmt.Errorf("move to (%d,%d): %w", x, y, err)
	}
	return nil
}

// Scroll turns the wheel; positive clicks scroll up.
func (in *Injector) Scroll(ctx context.Context, clicks int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clicks == 0 {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	if err := in.backend.Scroll(clicks); err != nil {
		return fmt.Errorf("scroll %d: %w", clicks, err)
	}
	return nil
}
