package region

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseRect parses "x,y,width,height".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("%w: rectangle %q must be x,y,width,height", ErrInvalidRegion, s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("%w: rectangle %q: %q is not an integer", ErrInvalidRegion, s, p)
		}
		v[i] = n
	}
	r := Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if !r.Valid() {
		return Rect{}, fmt.Errorf("%w: rectangle %s must have positive width and height", ErrInvalidRegion, r)
	}
	return r, nil
}

// ParseAction parses the compact "kind:args" form of an action:
//
//	click:x,y[,button]  key:name  hotkey:ctrl+s  type:text
//	move:x,y            wait[:seconds|duration]  scroll[:clicks]
//
// Wait and scroll default to one second and one notch.
func ParseAction(spec string) (Action, error) {
	name, args, _ := strings.Cut(spec, ":")
	kind, err := ParseKind(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return nil, err
	}

	var a Action
	switch kind {
	case KindClick:
		fields := splitArgs(args)
		if len(fields) != 2 && len(fields) != 3 {
			return nil, fmt.Errorf("%w: click %q must be x,y[,button]", ErrInvalidAction, args)
		}
		x, y, err := parsePoint(fields[0], fields[1])
		if err != nil {
			return nil, fmt.Errorf("click %q: %w", args, err)
		}
		c := Click{X: x, Y: y}
		if len(fields) == 3 {
			c.Button = Button(strings.ToLower(fields[2]))
		}
		a = c
	case KindMove:
		fields := splitArgs(args)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: move %q must be x,y", ErrInvalidAction, args)
		}
		x, y, err := parsePoint(fields[0], fields[1])
		if err != nil {
			return nil, fmt.Errorf("move %q: %w", args, err)
		}
		a = Move{X: x, Y: y}
	case KindKey:
		a = KeyPress{Key: strings.TrimSpace(args)}
	case KindHotkey:
		var keys []string
		for _, k := range strings.Split(args, "+") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		a = Hotkey{Keys: keys}
	case KindType:
		a = TypeText{Text: args}
	case KindWait:
		seconds, err := parseSeconds(strings.TrimSpace(args))
		if err != nil {
			return nil, err
		}
		a = Wait{Seconds: seconds}
	case KindScroll:
		clicks := 1
		if s := strings.TrimSpace(args); s != "" {
			if clicks, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("%w: scroll clicks %q is not an integer", ErrInvalidAction, s)
			}
		}
		a = Scroll{Clicks: clicks}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func parsePoint(xs, ys string) (int, int, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: x %q is not an integer", ErrInvalidAction, xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: y %q is not an integer", ErrInvalidAction, ys)
	}
	return x, y, nil
}

// parseSeconds accepts plain seconds ("0.5") or a Go duration ("500ms").
func parseSeconds(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: wait %q is neither seconds nor a duration", ErrInvalidAction, s)
	}
	return d.Seconds(), nil
}
