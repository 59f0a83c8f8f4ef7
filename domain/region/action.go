package region

import (
	"fmt"
	"math"
	"time"
)

// Kind is the wire tag of an action variant.
type Kind string

const (
	KindClick  Kind = "click"
	KindKey    Kind = "key"
	KindHotkey Kind = "hotkey"
	KindType   Kind = "type"
	KindMove   Kind = "move"
	KindWait   Kind = "wait"
	KindScroll Kind = "scroll"
)

// Kinds lists every supported action kind in display order.
var Kinds = []Kind{KindClick, KindKey, KindHotkey, KindType, KindMove, KindWait, KindScroll}

// ParseKind converts a wire tag to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownActionKind, s)
}

// Button is a pointer button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Action is one synthetic input step. The set of variants is closed:
// Click, KeyPress, Hotkey, TypeText, Move, Wait and Scroll.
type Action interface {
	Kind() Kind
	Validate() error
	isAction()
}

// Click presses and releases a pointer button at (X, Y).
type Click struct {
	X      int
	Y      int
	Button Button
}

// KeyPress presses a single named key.
type KeyPress struct {
	Key string
}

// Hotkey presses all keys together, in order, then releases them.
type Hotkey struct {
	Keys []string
}

// TypeText types a string one character at a time.
type TypeText struct {
	Text string
}

// Move moves the pointer to (X, Y) without clicking.
type Move struct {
	X int
	Y int
}

// Wait pauses the action list for Seconds.
type Wait struct {
	Seconds float64
}

// Scroll turns the wheel by Clicks notches; positive scrolls up.
type Scroll struct {
	Clicks int
}

func (Click) Kind() Kind    { return KindClick }
func (KeyPress) Kind() Kind { return KindKey }
func (Hotkey) Kind() Kind   { return KindHotkey }
func (TypeText) Kind() Kind { return KindType }
func (Move) Kind() Kind     { return KindMove }
func (Wait) Kind() Kind     { return KindWait }
func (Scroll) Kind() Kind   { return KindScroll }

func (Click) isAction()    {}
func (KeyPress) isAction() {}
func (Hotkey) isAction()   {}
func (TypeText) isAction() {}
func (Move) isAction()     {}
func (Wait) isAction()     {}
func (Scroll) isAction()   {}

func (a Click) Validate() error {
	switch a.Button {
	case "", ButtonLeft, ButtonRight, ButtonMiddle:
		return nil
	default:
		return fmt.Errorf("%w: click button %q", ErrInvalidAction, a.Button)
	}
}

func (a KeyPress) Validate() error {
	if a.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidAction)
	}
	return nil
}

func (a Hotkey) Validate() error {
	if len(a.Keys) == 0 {
		return fmt.Errorf("%w: hotkey needs at least one key", ErrInvalidAction)
	}
	for i, k := range a.Keys {
		if k == "" {
			return fmt.Errorf("%w: hotkey key %d is empty", ErrInvalidAction, i)
		}
	}
	return nil
}

func (a TypeText) Validate() error {
	if a.Text == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidAction)
	}
	return nil
}

func (Move) Validate() error { return nil }

func (a Wait) Validate() error {
	if math.IsNaN(a.Seconds) || math.IsInf(a.Seconds, 0) || a.Seconds < 0 {
		return fmt.Errorf("%w: wait duration %v must be a non-negative number of seconds", ErrInvalidAction, a.Seconds)
	}
	return nil
}

func (a Scroll) Validate() error {
	if a.Clicks == 0 {
		return fmt.Errorf("%w: scroll clicks must be non-zero", ErrInvalidAction)
	}
	return nil
}

// ButtonOrDefault returns the click button, defaulting to left.
func (a Click) ButtonOrDefault() Button {
	if a.Button == "" {
		return ButtonLeft
	}
	return a.Button
}

// Duration returns the wait as a time.Duration.
func (a Wait) Duration() time.Duration {
	return time.Duration(a.Seconds * float64(time.Second))
}

// CloneAction deep-copies an action.
func CloneAction(a Action) Action {
	if h, ok := a.(Hotkey); ok {
		keys := make([]string, len(h.Keys))
		copy(keys, h.Keys)
		return Hotkey{Keys: keys}
	}
	return a
}

// Describe renders an action for logs and listings.
func Describe(a Action) string {
	switch v := a.(type) {
	case Click:
		return fmt.Sprintf("click %s at (%d,%d)", v.ButtonOrDefault(), v.X, v.Y)
	case KeyPress:
		return fmt.Sprintf("key %s", v.Key)
	case Hotkey:
		return fmt.Sprintf("hotkey %v", v.Keys)
	case TypeText:
		return fmt.Sprintf("type %q", v.Text)
	case Move:
		return fmt.Sprintf("move to (%d,%d)", v.X, v.Y)
	case Wait:
		return fmt.Sprintf("wait %gs", v.Seconds)
	case Scroll:
		return fmt.Sprintf("scroll %d", v.Clicks)
	default:
		return fmt.Sprintf("%T", a)
	}
}
