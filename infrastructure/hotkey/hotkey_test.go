package hotkey

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"textmacro-go/core/command"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	commands []string
	err      error
	notify   chan string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, cmd command.Command) error {
	d.mu.Lock()
	d.commands = append(d.commands, cmd.CommandName())
	d.mu.Unlock()
	if d.notify != nil {
		d.notify <- cmd.CommandName()
	}
	return d.err
}

func (d *recordingDispatcher) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

type fakeBackend struct {
	startErr error
	bindings []Binding
	fire     func(Action)
	stopped  bool
}

func (b *fakeBackend) start(bindings []Binding, fire func(Action)) error {
	if b.startErr != nil {
		return b.startErr
	}
	b.bindings = bindings
	b.fire = fire
	return nil
}

func (b *fakeBackend) stop() {
	b.stopped = true
}

func newTestListener(t *testing.T, d Dispatcher) (*Listener, *fakeBackend) {
	t.Helper()
	bindings, err := Bindings("f6", []string{"f8", "ctrl+alt+x"})
	if err != nil {
		t.Fatalf("Bindings() error = %v", err)
	}
	l, err := NewListener(&ListenerConfig{Dispatcher: d, Bindings: bindings})
	if err != nil {
		t.Fatalf("NewListener() error = %v", err)
	}
	fb := &fakeBackend{}
	l.backend = fb
	return l, fb
}

func TestParseCombo(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"f6", []string{"f6"}, false},
		{"Ctrl+Alt+X", []string{"ctrl", "alt", "x"}, false},
		{" ctrl + s ", []string{"ctrl", "s"}, false},
		{"", nil, true},
		{"ctrl+", nil, true},
		{"+", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCombo(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCombo(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCombo(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBindings(t *testing.T) {
	got, err := Bindings("f6", []string{"f8", "ctrl+alt+x"})
	if err != nil {
		t.Fatalf("Bindings() error = %v", err)
	}
	want := []Binding{
		{Keys: []string{"f6"}, Action: ActionToggle},
		{Keys: []string{"f8"}, Action: ActionEmergencyStop},
		{Keys: []string{"ctrl", "alt", "x"}, Action: ActionEmergencyStop},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Bindings() = %v, want %v", got, want)
	}

	got, err = Bindings("", []string{"f8"})
	if err != nil {
		t.Fatalf("Bindings() without toggle error = %v", err)
	}
	if len(got) != 1 || got[0].Action != ActionEmergencyStop {
		t.Errorf("Bindings() without toggle = %v, want only the stop binding", got)
	}

	if _, err := Bindings("f6", []string{"ctrl+"}); err == nil {
		t.Error("Bindings() with bad stop combo error = nil, want error")
	}
}

func TestAction_Command(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionToggle, "ToggleMonitor"},
		{ActionEmergencyStop, "EmergencyStop"},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.Command().CommandName(); got != tt.want {
				t.Errorf("Command() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewListener_Errors(t *testing.T) {
	bindings := []Binding{{Keys: []string{"f6"}, Action: ActionToggle}}
	if _, err := NewListener(&ListenerConfig{Bindings: bindings}); err == nil {
		t.Error("NewListener() without dispatcher error = nil, want error")
	}
	if _, err := NewListener(&ListenerConfig{Dispatcher: &recordingDispatcher{}}); err == nil {
		t.Error("NewListener() without bindings error = nil, want error")
	}
}

func TestListener_HandleDebounces(t *testing.T) {
	d := &recordingDispatcher{}
	l, _ := newTestListener(t, d)
	clock := time.Unix(1000, 0)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	steps := []struct {
		advance time.Duration
		action  Action
	}{
		{0, ActionToggle},
		{100 * time.Millisecond, ActionToggle}, // key repeat, dropped
		{0, ActionEmergencyStop},
		{DefaultDebounce, ActionToggle},
		{10 * time.Millisecond, ActionEmergencyStop},
	}
	for _, s := range steps {
		clock = clock.Add(s.advance)
		if err := l.Handle(ctx, s.action); err != nil {
			t.Fatalf("Handle(%v) error = %v", s.action, err)
		}
	}

	want := []string{"ToggleMonitor", "EmergencyStop", "ToggleMonitor", "EmergencyStop"}
	if got := d.names(); !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched = %v, want %v", got, want)
	}
}

func TestListener_HandleReturnsDispatchError(t *testing.T) {
	wantErr := errors.New("busy")
	l, _ := newTestListener(t, &recordingDispatcher{err: wantErr})
	if err := l.Handle(context.Background(), ActionEmergencyStop); !errors.Is(err, wantErr) {
		t.Errorf("Handle() error = %v, want %v", err, wantErr)
	}
}

func TestListener_StartFiresCommands(t *testing.T) {
	defer goleak.VerifyNone(t)

	d := &recordingDispatcher{notify: make(chan string, 1)}
	l, fb := newTestListener(t, d)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(fb.bindings) != 3 {
		t.Errorf("backend bindings = %d, want 3", len(fb.bindings))
	}
	if err := l.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want already started")
	}

	fb.fire(ActionEmergencyStop)
	select {
	case got := <-d.notify:
		if got != "EmergencyStop" {
			t.Errorf("dispatched %q, want EmergencyStop", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey command not dispatched")
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fb.stopped {
		t.Error("backend not stopped on Close")
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestListener_StartBackendError(t *testing.T) {
	l, fb := newTestListener(t, &recordingDispatcher{})
	fb.startErr = ErrUnavailable

	if err := l.Start(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Start() error = %v, want ErrUnavailable", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() after failed Start error = %v", err)
	}
	if fb.stopped {
		t.Error("backend stopped although it never started")
	}
}
