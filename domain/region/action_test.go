package region

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k, got, err)
		}
	}

	if _, err := ParseKind("drag"); !errors.Is(err, ErrUnknownActionKind) {
		t.Errorf("ParseKind(drag) error = %v, want %v", err, ErrUnknownActionKind)
	}
}

func TestAction_Kind(t *testing.T) {
	want := []Kind{KindClick, KindKey, KindHotkey, KindType, KindMove, KindWait, KindScroll}
	for i, a := range allActions() {
		if a.Kind() != want[i] {
			t.Errorf("%T.Kind() = %v, want %v", a, a.Kind(), want[i])
		}
	}
}

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"click default button", Click{X: 1, Y: 1}, false},
		{"click middle", Click{Button: ButtonMiddle}, false},
		{"click bogus button", Click{Button: "thumb"}, true},
		{"key", KeyPress{Key: "space"}, false},
		{"key empty", KeyPress{}, true},
		{"hotkey", Hotkey{Keys: []string{"ctrl", "c"}}, false},
		{"hotkey empty", Hotkey{}, true},
		{"hotkey blank key", Hotkey{Keys: []string{"ctrl", ""}}, true},
		{"type", TypeText{Text: "x"}, false},
		{"type empty", TypeText{}, true},
		{"move negative coords", Move{X: -100, Y: -5}, false},
		{"wait zero", Wait{}, false},
		{"wait negative", Wait{Seconds: -0.1}, true},
		{"wait NaN", Wait{Seconds: math.NaN()}, true},
		{"wait inf", Wait{Seconds: math.Inf(1)}, true},
		{"scroll", Scroll{Clicks: 2}, false},
		{"scroll zero", Scroll{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Validate() error = %v, want wrapped %v", err, ErrInvalidAction)
			}
		})
	}
}

func TestWait_Duration(t *testing.T) {
	if got := (Wait{Seconds: 1.5}).Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, want 1.5s", got)
	}
}

func TestClick_ButtonOrDefault(t *testing.T) {
	if got := (Click{}).ButtonOrDefault(); got != ButtonLeft {
		t.Errorf("ButtonOrDefault() = %v, want left", got)
	}
	if got := (Click{Button: ButtonRight}).ButtonOrDefault(); got != ButtonRight {
		t.Errorf("ButtonOrDefault() = %v, want right", got)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{Click{X: 1, Y: 2}, "click left at (1,2)"},
		{KeyPress{Key: "f5"}, "key f5"},
		{Hotkey{Keys: []string{"ctrl", "v"}}, "hotkey [ctrl v]"},
		{TypeText{Text: "hi"}, `type "hi"`},
		{Move{X: 3, Y: 4}, "move to (3,4)"},
		{Wait{Seconds: 2}, "wait 2s"},
		{Scroll{Clicks: -1}, "scroll -1"},
	}
	for _, tt := range tests {
		if got := Describe(tt.action); got != tt.want {
			t.Errorf("Describe(%T) = %q, want %q", tt.action, got, tt.want)
		}
	}
}
