package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"textmacro-go/domain/region"
)

// fakeCapture returns an image whose bounds equal the requested rectangle so
// fakeRecognizer can map it back to text.
type fakeCapture struct {
	mu       sync.Mutex
	calls    []region.Rect
	fail     map[region.Rect]error
	delay    time.Duration
	ignoreCx bool // block for delay even when ctx is cancelled
	onCall   func(n int)
}

func (c *fakeCapture) Capture(ctx context.Context, rect region.Rect) (image.Image, error) {
	c.mu.Lock()
	c.calls = append(c.calls, rect)
	n := len(c.calls)
	err := c.fail[rect]
	onCall := c.onCall
	delay, ignoreCx := c.delay, c.ignoreCx
	c.mu.Unlock()

	if onCall != nil {
		onCall(n)
	}
	if delay > 0 {
		if ignoreCx {
			time.Sleep(delay)
		} else {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return image.NewRGBA(rect.Image()), nil
}

func (c *fakeCapture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeRecognizer struct {
	mu    sync.Mutex
	texts map[region.Rect]string
	fail  map[region.Rect]error
	langs []string
}

func (r *fakeRecognizer) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	b := img.Bounds()
	rect := region.Rect{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs = append(r.langs, lang)
	if err := r.fail[rect]; err != nil {
		return "", err
	}
	return r.texts[rect], nil
}

func (r *fakeRecognizer) Available() bool { return true }
func (r *fakeRecognizer) Name() string    { return "fake" }

func (r *fakeRecognizer) set(rect region.Rect, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.texts == nil {
		r.texts = make(map[region.Rect]string)
	}
	r.texts[rect] = text
}

// fakeInjector records every primitive call as a string.
type fakeInjector struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	onCall func(call string)
}

func (f *fakeInjector) record(call, kind string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.fail[kind]
	onCall := f.onCall
	f.mu.Unlock()
	if onCall != nil {
		onCall(call)
	}
	return err
}

func (f *fakeInjector) Click(ctx context.Context, x, y int, button region.Button) error {
	return f.record(fmt.Sprintf("click %s %d,%d", button, x, y), "click")
}

func (f *fakeInjector) PressKey(ctx context.Context, key string) error {
	return f.record("key "+key, "key")
}

func (f *fakeInjector) Hotkey(ctx context.Context, keys []string) error {
	return f.record(fmt.Sprintf("hotkey %v", keys), "hotkey")
}

func (f *fakeInjector) TypeText(ctx context.Context, text string) error {
	return f.record("type "+text, "type")
}

func (f *fakeInjector) MoveTo(ctx context.Context, x, y int) error {
	return f.record(fmt.Sprintf("move %d,%d", x, y), "move")
}

func (f *fakeInjector) Scroll(ctx context.Context, clicks int) error {
	return f.record(fmt.Sprintf("scroll %d", clicks), "scroll")
}

func (f *fakeInjector) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// staticSource serves a fixed region list.
type staticSource struct {
	mu      sync.Mutex
	name    string
	regions []region.Region
}

func (s *staticSource) Active() []region.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return region.CloneAll(s.regions)
}

func (s *staticSource) ActiveName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *staticSource) load(name string, regions []region.Region) {
	s.mu.Lock()
	s.name = name
	s.regions = region.CloneAll(regions)
	s.mu.Unlock()
}

var errCaptureFailed = errors.New("capture failed")

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
