// Package browser drives a Chrome page as a monitoring target: it captures
// page rectangles and injects mouse and keyboard input through CDP.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"textmacro-go/domain/region"
)

// ErrNotRunning is returned when the page has not been started.
var ErrNotRunning = errors.New("browser not running")

const (
	captureTimeout = 3 * time.Second
	inputTimeout   = 5 * time.Second

	// wheelNotch is the pixel delta of one wheel click.
	wheelNotch = 100
)

// Config holds configuration for the browser page.
type Config struct {
	URL            string
	Headless       bool
	Width          int
	Height         int
	MuteAudio      bool
	HideScrollbars bool
	DisableGPU     bool
	UserDataDir    string
	Logger         *slog.Logger
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		Width:          1280,
		Height:         800,
		MuteAudio:      true,
		HideScrollbars: true,
	}
}

// Page is a single chromedp tab. Coordinates are CSS pixels of the viewport.
type Page struct {
	config      *Config
	logger      *slog.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool

	// Last pointer position, wheel events are dispatched there.
	pointerX, pointerY float64
}

// NewPage creates a browser page. Call Start before use.
func NewPage(config *Config) *Page {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Page{
		config: config,
		logger: logger.With("component", "browser"),
	}
}

func (p *Page) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("hide-scrollbars", p.config.HideScrollbars),
		chromedp.Flag("mute-audio", p.config.MuteAudio),
		chromedp.Flag("disable-gpu", p.config.DisableGPU),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(p.config.Width, p.config.Height),
	)

	if p.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(p.config.UserDataDir))
	}

	return opts
}

// Start launches the browser, sizes the viewport and opens the configured URL.
func (p *Page) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("browser already running")
	}

	// The browser outlives the caller's context; Stop ends it.
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		p.buildExecAllocatorOptions()...,
	)
	p.ctx, p.cancel = chromedp.NewContext(p.allocCtx)

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(p.config.Width), int64(p.config.Height), chromedp.EmulateScale(1)),
	}
	if p.config.URL != "" {
		tasks = append(tasks, chromedp.Navigate(p.config.URL))
	}

	// The first Run allocates the browser and must use the page context itself.
	if err := chromedp.Run(p.ctx); err != nil {
		p.cleanup()
		return fmt.Errorf("launch browser: %w", err)
	}

	runCtx, cancel := mergeDeadline(ctx, p.ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, tasks); err != nil {
		p.cleanup()
		return fmt.Errorf("start page failure: %w", err)
	}

	p.running = true
	p.logger.Info("Browser started", "url", p.config.URL, "headless", p.config.Headless)
	return nil
}

// Stop closes the browser and releases resources.
func (p *Page) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.cleanup()
	p.logger.Info("Browser stopped")
	return nil
}

func (p *Page) cleanup() {
	p.running = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	p.ctx = nil
	p.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (p *Page) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Navigate opens url in the page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	browserCtx, err := p.browserContext()
	if err != nil {
		return err
	}
	runCtx, cancel := mergeDeadline(ctx, browserCtx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

// Capture screenshots rect of the viewport.
func (p *Page) Capture(ctx context.Context, rect region.Rect) (image.Image, error) {
	if !rect.Valid() {
		return nil, fmt.Errorf("%w: %s", region.ErrInvalidRegion, rect)
	}
	browserCtx, err := p.browserContext()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := mergeDeadline(ctx, browserCtx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(runCtx, captureTimeout)
	defer cancelTimeout()

	var buf []byte
	err = chromedp.Run(timeoutCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(clipFor(rect)).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	return img, nil
}

// Click performs a mouse click at the specified coordinates.
func (p *Page) Click(ctx context.Context, x, y int, button region.Button) error {
	err := p.runInput(ctx, chromedp.MouseClickXY(float64(x), float64(y), mouseButton(button)))
	if err == nil {
		p.setPointer(x, y)
	}
	return err
}

// MoveTo moves the pointer without clicking.
func (p *Page) MoveTo(ctx context.Context, x, y int) error {
	err := p.runInput(ctx, input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)))
	if err == nil {
		p.setPointer(x, y)
	}
	return err
}

// Scroll dispatches a wheel event at the last pointer position;
// positive clicks scroll up.
func (p *Page) Scroll(ctx context.Context, clicks int) error {
	if clicks == 0 {
		return nil
	}
	p.mu.Lock()
	x, y := p.pointerX, p.pointerY
	p.mu.Unlock()

	return p.runInput(ctx, input.DispatchMouseEvent(input.MouseWheel, x, y).
		WithDeltaX(0).
		WithDeltaY(float64(-clicks*wheelNotch)))
}

// PressKey sends a single key.
func (p *Page) PressKey(ctx context.Context, key string) error {
	k, ok := keyFor(key)
	if !ok {
		return fmt.Errorf("%w: empty key", region.ErrInvalidAction)
	}
	return p.runInput(ctx, chromedp.KeyEvent(k))
}

// Hotkey sends the non-modifier keys with every modifier held.
func (p *Page) Hotkey(ctx context.Context, keys []string) error {
	mods, rest, err := splitHotkey(keys)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		// Modifier-only chord: press and release them raw.
		return p.runInput(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			for _, name := range mods.names {
				if err := input.DispatchKeyEvent(input.KeyRawDown).WithKey(name).WithModifiers(mods.mask).Do(ctx); err != nil {
					return err
				}
			}
			for i := len(mods.names) - 1; i >= 0; i-- {
				if err := input.DispatchKeyEvent(input.KeyUp).WithKey(mods.names[i]).Do(ctx); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	actions := make(chromedp.Tasks, 0, len(rest))
	for _, k := range rest {
		actions = append(actions, chromedp.KeyEvent(k, chromedp.KeyModifiers(mods.list...)))
	}
	return p.runInput(ctx, actions)
}

// TypeText inserts text as if typed.
func (p *Page) TypeText(ctx context.Context, text string) error {
	return p.runInput(ctx, input.InsertText(text))
}

func (p *Page) runInput(ctx context.Context, action chromedp.Action) error {
	browserCtx, err := p.browserContext()
	if err != nil {
		return err
	}
	runCtx, cancel := mergeDeadline(ctx, browserCtx)
	defer cancel()
	timeoutCtx, cancelTimeout := context.WithTimeout(runCtx, inputTimeout)
	defer cancelTimeout()

	return chromedp.Run(timeoutCtx, action)
}

func (p *Page) browserContext() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.ctx == nil {
		return nil, ErrNotRunning
	}
	return p.ctx, nil
}

func (p *Page) setPointer(x, y int) {
	p.mu.Lock()
	p.pointerX, p.pointerY = float64(x), float64(y)
	p.mu.Unlock()
}

// mergeDeadline derives a context from browserCtx that is also cancelled when
// callerCtx is done, so a monitor stop aborts in-flight CDP calls.
func mergeDeadline(callerCtx, browserCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(browserCtx)
	stop := context.AfterFunc(callerCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func clipFor(rect region.Rect) *page.Viewport {
	return &page.Viewport{
		X:      float64(rect.X),
		Y:      float64(rect.Y),
		Width:  float64(rect.Width),
		Height: float64(rect.Height),
		Scale:  1,
	}
}

func mouseButton(b region.Button) chromedp.MouseOption {
	switch b {
	case region.ButtonRight:
		return chromedp.ButtonRight
	case region.ButtonMiddle:
		return chromedp.ButtonMiddle
	default:
		return chromedp.ButtonLeft
	}
}

var namedKeys = map[string]string{
	"enter":     kb.Enter,
	"return":    kb.Enter,
	"esc":       kb.Escape,
	"escape":    kb.Escape,
	"tab":       kb.Tab,
	"backspace": kb.Backspace,
	"delete":    kb.Delete,
	"del":       kb.Delete,
	"insert":    kb.Insert,
	"space":     " ",
	"up":        kb.ArrowUp,
	"down":      kb.ArrowDown,
	"left":      kb.ArrowLeft,
	"right":     kb.ArrowRight,
	"home":      kb.Home,
	"end":       kb.End,
	"pageup":    kb.PageUp,
	"pgup":      kb.PageUp,
	"pagedown":  kb.PageDown,
	"pgdn":      kb.PageDown,
	"f1":        kb.F1,
	"f2":        kb.F2,
	"f3":        kb.F3,
	"f4":        kb.F4,
	"f5":        kb.F5,
	"f6":        kb.F6,
	"f7":        kb.F7,
	"f8":        kb.F8,
	"f9":        kb.F9,
	"f10":       kb.F10,
	"f11":       kb.F11,
	"f12":       kb.F12,
}

// keyFor maps a key name to the string chromedp.KeyEvent expects.
// Unknown multi-character names are sent as typed text.
func keyFor(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if name == " " {
			return " ", true
		}
		return "", false
	}
	if k, ok := namedKeys[strings.ToLower(trimmed)]; ok {
		return k, true
	}
	return trimmed, true
}

type modifierSet struct {
	mask  input.Modifier
	list  []input.Modifier
	names []string
}

var modifierKeys = map[string]struct {
	mod  input.Modifier
	name string
}{
	"ctrl":    {input.ModifierCtrl, "Control"},
	"control": {input.ModifierCtrl, "Control"},
	"shift":   {input.ModifierShift, "Shift"},
	"alt":     {input.ModifierAlt, "Alt"},
	"option":  {input.ModifierAlt, "Alt"},
	"cmd":     {input.ModifierMeta, "Meta"},
	"command": {input.ModifierMeta, "Meta"},
	"meta":    {input.ModifierMeta, "Meta"},
	"win":     {input.ModifierMeta, "Meta"},
}

func splitHotkey(keys []string) (modifierSet, []string, error) {
	var mods modifierSet
	var rest []string
	if len(keys) == 0 {
		return mods, nil, fmt.Errorf("%w: empty hotkey", region.ErrInvalidAction)
	}
	for _, raw := range keys {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return mods, nil, fmt.Errorf("%w: empty key in hotkey", region.ErrInvalidAction)
		}
		if m, ok := modifierKeys[name]; ok {
			if mods.mask&m.mod == 0 {
				mods.mask |= m.mod
				mods.list = append(mods.list, m.mod)
				mods.names = append(mods.names, m.name)
			}
			continue
		}
		k, _ := keyFor(raw)
		rest = append(rest, k)
	}
	return mods, rest, nil
}
