// Package monitor runs the region polling loop and executes triggered actions.
package monitor

import (
	"context"
	"image"

	"textmacro-go/domain/region"
)

// ScreenCapture returns the pixels of a screen rectangle.
type ScreenCapture interface {
	Capture(ctx context.Context, rect region.Rect) (image.Image, error)
}

// TextRecognizer extracts text from an image.
type TextRecognizer interface {
	// Recognize returns the recognized text, possibly empty.
	Recognize(ctx context.Context, img image.Image, lang string) (string, error)

	// Available reports whether a working engine backs this recognizer.
	Available() bool

	// Name identifies the engine for logs.
	Name() string
}

// InputInjector performs synthetic input on the monitored target.
type InputInjector interface {
	Click(ctx context.Context, x, y int, button region.Button) error
	PressKey(ctx context.Context, key string) error
	// Hotkey presses keys together, distinct from sequential PressKey calls.
	Hotkey(ctx context.Context, keys []string) error
	TypeText(ctx context.Context, text string) error
	MoveTo(ctx context.Context, x, y int) error
	Scroll(ctx context.Context, clicks int) error
}

// RegionSource provides the active region list.
type RegionSource interface {
	// Active returns a copy of the active list that callers may keep.
	Active() []region.Region
	ActiveName() string
}
