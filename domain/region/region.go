// Package region defines monitored screen regions, their trigger policy and
// the synthetic input actions they run.
package region

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrInvalidRegion is returned when a region violates a model invariant.
	ErrInvalidRegion = errors.New("invalid region")
	// ErrInvalidAction is returned when an action's fields are out of range.
	ErrInvalidAction = errors.New("invalid action")
	// ErrUnknownActionKind is returned when decoding an unsupported action tag.
	ErrUnknownActionKind = errors.New("unknown action kind")
)

// Rect is a screen rectangle in absolute pixel coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Image converts the rectangle to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Region is a monitored rectangle with a trigger policy and an action list.
type Region struct {
	// Name identifies the region, unique within its set
	Name string

	// Rect is the primary capture rectangle
	Rect Rect

	// TargetText is matched as a case-insensitive substring of the recognized text
	TargetText string

	// Enabled regions are evaluated every cycle; disabled ones are skipped
	Enabled bool

	// Actions run in list order when the region triggers
	Actions []Action

	// CompareEnabled turns on region-vs-region comparison
	CompareEnabled bool

	// CompareRegion is the secondary rectangle, set iff CompareEnabled
	CompareRegion *Rect

	// CompareTriggerOnly disables the target-text path entirely
	CompareTriggerOnly bool
}

// New creates an enabled region watching rect for target.
func New(name string, rect Rect, target string, actions ...Action) Region {
	return Region{
		Name:       name,
		Rect:       rect,
		TargetText: target,
		Enabled:    true,
		Actions:    actions,
	}
}

// WithComparison returns a copy of r that compares against rect.
func (r Region) WithComparison(rect Rect, triggerOnly bool) Region {
	c := r.Clone()
	c.CompareEnabled = true
	c.CompareRegion = &rect
	c.CompareTriggerOnly = triggerOnly
	return c
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	c := r
	if r.Actions != nil {
		c.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			c.Actions[i] = CloneAction(a)
		}
	}
	if r.CompareRegion != nil {
		rect := *r.CompareRegion
		c.CompareRegion = &rect
	}
	return c
}

// Validate checks the region invariants and every action.
func (r Region) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegion)
	}
	if !r.Rect.Valid() {
		return fmt.Errorf("%w: %s: rectangle %s must have positive width and height", ErrInvalidRegion, r.Name, r.Rect)
	}
	if r.CompareEnabled {
		if r.CompareRegion == nil {
			return fmt.Errorf("%w: %s: comparison enabled without a comparison rectangle", ErrInvalidRegion, r.Name)
		}
		if !r.CompareRegion.Valid() {
			return fmt.Errorf("%w: %s: comparison rectangle %s must have positive width and height", ErrInvalidRegion, r.Name, *r.CompareRegion)
		}
	} else if r.CompareRegion != nil {
		return fmt.Errorf("%w: %s: comparison rectangle set while comparison is disabled", ErrInvalidRegion, r.Name)
	}
	if r.TargetText == "" && !(r.CompareEnabled && r.CompareTriggerOnly) {
		return fmt.Errorf("%w: %s: target text is required unless comparison-only triggering is enabled", ErrInvalidRegion, r.Name)
	}
	for i, a := range r.Actions {
		if a == nil {
			return fmt.Errorf("%w: %s: action %d is nil", ErrInvalidAction, r.Name, i)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%s: action %d: %w", r.Name, i, err)
		}
	}
	return nil
}

// CloneAll deep-copies a region list.
func CloneAll(regions []Region) []Region {
	if regions == nil {
		return nil
	}
	out := make([]Region, len(regions))
	for i, r := range regions {
		out[i] = r.Clone()
	}
	return out
}

// ValidateAll validates every region and checks names are unique.
func ValidateAll(regions []Region) error {
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate region name %q", ErrInvalidRegion, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}
