package presentation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"textmacro-go/domain/region"
)

// RegionFlags is the command-line form of a region, shared by the region
// subcommands and the shell's add and update commands.
type RegionFlags struct {
	Rect        string
	Target      string
	Compare     string
	CompareOnly bool
	Actions     []string
	Disabled    bool
	Rename      string
}

// Register adds the region flags to fs.
func (f *RegionFlags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Rect, "rect", "", "capture rectangle as x,y,width,height")
	fs.StringVar(&f.Target, "target", "", "text whose appearance triggers the region")
	fs.StringVar(&f.Compare, "compare", "", `comparison rectangle as x,y,width,height, or "none"`)
	fs.BoolVar(&f.CompareOnly, "compare-only", false, "trigger only when the comparison region matches")
	fs.StringArrayVar(&f.Actions, "action", nil,
		"action as kind:args, repeatable: click:x,y[,button] key:name hotkey:ctrl+s type:text move:x,y wait[:sec] scroll[:n]")
	fs.BoolVar(&f.Disabled, "disabled", false, "keep the region disabled")
	fs.StringVar(&f.Rename, "rename", "", "new region name (update only)")
}

// NewRegion builds a region called name from the flags set in fs.
func (f *RegionFlags) NewRegion(fs *pflag.FlagSet, name string) (region.Region, error) {
	if !fs.Changed("rect") {
		return region.Region{}, errors.New("--rect is required")
	}
	if fs.Changed("rename") {
		return region.Region{}, errors.New("--rename only applies to update")
	}
	r := region.New(name, region.Rect{}, "")
	if err := f.Apply(fs, &r); err != nil {
		return region.Region{}, err
	}
	return r, nil
}

// Apply overwrites the fields of r whose flags were set in fs. An --action
// flag replaces the whole action list.
func (f *RegionFlags) Apply(fs *pflag.FlagSet, r *region.Region) error {
	if fs.Changed("rename") {
		r.Name = strings.TrimSpace(f.Rename)
	}
	if fs.Changed("rect") {
		rect, err := region.ParseRect(f.Rect)
		if err != nil {
			return err
		}
		r.Rect = rect
	}
	if fs.Changed("target") {
		r.TargetText = f.Target
	}
	if fs.Changed("compare") {
		if c := strings.TrimSpace(f.Compare); c == "" || strings.EqualFold(c, "none") {
			r.CompareEnabled = false
			r.CompareRegion = nil
			r.CompareTriggerOnly = false
		} else {
			rect, err := region.ParseRect(c)
			if err != nil {
				return fmt.Errorf("--compare: %w", err)
			}
			r.CompareEnabled = true
			r.CompareRegion = &rect
		}
	}
	if fs.Changed("compare-only") {
		if f.CompareOnly && !r.CompareEnabled {
			return errors.New("--compare-only needs a comparison rectangle")
		}
		r.CompareTriggerOnly = f.CompareOnly
	}
	if fs.Changed("action") {
		actions := make([]region.Action, 0, len(f.Actions))
		for _, spec := range f.Actions {
			a, err := region.ParseAction(spec)
			if err != nil {
				return fmt.Errorf("--action %q: %w", spec, err)
			}
			actions = append(actions, a)
		}
		r.Actions = actions
	}
	if fs.Changed("disabled") {
		r.Enabled = !f.Disabled
	}
	return nil
}

// SplitWords splits a command line into words. Single or double quotes
// group words containing spaces.
func SplitWords(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
	)
	for _, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteRune(c)
			}
		case c == '"' || c == '\'':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(c)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
