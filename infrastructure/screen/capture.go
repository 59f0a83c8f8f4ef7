// Package screen captures desktop screen rectangles.
package screen

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"textmacro-go/domain/region"
)

// ErrNoDisplay is returned when no active display is attached.
var ErrNoDisplay = errors.New("screen: no active display")

// Capturer grabs rectangles of the virtual desktop in absolute coordinates.
type Capturer struct {
	grab func(image.Rectangle) (*image.RGBA, error)
}

// NewCapturer creates a desktop capturer.
func NewCapturer() *Capturer {
	return &Capturer{grab: screenshot.CaptureRect}
}

// Capture returns the pixels of rect. The returned image's bounds start at
// the origin and have rect's size.
func (c *Capturer) Capture(ctx context.Context, rect region.Rect) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !rect.Valid() {
		return nil, fmt.Errorf("%w: %s", region.ErrInvalidRegion, rect)
	}
	img, err := c.grab(rect.Image())
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", rect, err)
	}
	return img, nil
}

// Display describes one attached monitor.
type Display struct {
	Index  int
	Bounds image.Rectangle
}

// Displays lists the active displays and their bounds.
func Displays() ([]Display, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, ErrNoDisplay
	}
	out := make([]Display, n)
	for i := 0; i < n; i++ {
		out[i] = Display{Index: i, Bounds: screenshot.GetDisplayBounds(i)}
	}
	return out, nil
}
