package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"textmacro-go/application/monitor"
	"textmacro-go/core/command"
	"textmacro-go/core/event"
	"textmacro-go/core/eventbus"
	"textmacro-go/core/state"
	"textmacro-go/domain/region"
	"textmacro-go/domain/regionset"
	"textmacro-go/infrastructure/repository"
)

type fakeMonitor struct {
	mu          sync.Mutex
	running     bool
	starts      int
	stops       int
	emergencies int
	stopResult  bool
	probeResult monitor.ProbeResult
	probeErr    error
	probed      []string
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{stopResult: true}
}

func (m *fakeMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return monitor.ErrAlreadyRunning
	}
	m.running = true
	m.starts++
	return nil
}

func (m *fakeMonitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
	return m.stopResult
}

func (m *fakeMonitor) EmergencyStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.emergencies++
	return m.stopResult
}

func (m *fakeMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *fakeMonitor) Status() monitor.Status {
	if m.IsRunning() {
		return monitor.Status{State: state.StateRunning}
	}
	return monitor.Status{State: state.StateIdle}
}

func (m *fakeMonitor) Probe(ctx context.Context, r region.Region) (monitor.ProbeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probed = append(m.probed, r.Name)
	res := m.probeResult
	res.Region = r.Name
	return res, m.probeErr
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []repository.TriggerRecord
}

func (r *fakeRecorder) Record(ctx context.Context, rec repository.TriggerRecord) (repository.TriggerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return rec, nil
}

func testRegion(name string) region.Region {
	return region.New(name, region.Rect{X: 0, Y: 0, Width: 10, Height: 10}, "OK", region.KeyPress{Key: "enter"})
}

func newTestCoordinator(t *testing.T, bus eventbus.EventBus, history TriggerRecorder) (*Coordinator, *fakeMonitor) {
	t.Helper()
	mon := newFakeMonitor()
	coord, err := NewCoordinator(&CoordinatorConfig{
		Store:    regionset.NewStore(),
		Monitor:  mon,
		History:  history,
		EventBus: bus,
	})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	t.Cleanup(coord.Stop)
	return coord, mon
}

func TestNewCoordinator_Requires(t *testing.T) {
	if _, err := NewCoordinator(&CoordinatorConfig{Monitor: newFakeMonitor()}); err == nil {
		t.Error("NewCoordinator() without store error = nil, want error")
	}
}

func TestCoordinator_WithoutMonitor(t *testing.T) {
	coord, err := NewCoordinator(&CoordinatorConfig{Store: regionset.NewStore()})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	defer coord.Stop()
	ctx := context.Background()

	if err := coord.Dispatch(ctx, &command.AddRegion{Region: testRegion("a")}); err != nil {
		t.Fatalf("AddRegion error = %v", err)
	}
	if err := coord.Dispatch(ctx, &command.StartMonitor{}); !errors.Is(err, ErrNoMonitor) {
		t.Errorf("StartMonitor error = %v, want %v", err, ErrNoMonitor)
	}
	if err := coord.Dispatch(ctx, &command.ToggleMonitor{}); !errors.Is(err, ErrNoMonitor) {
		t.Errorf("ToggleMonitor error = %v, want %v", err, ErrNoMonitor)
	}
	if err := coord.Dispatch(ctx, &command.StopMonitor{}); err != nil {
		t.Errorf("StopMonitor error = %v, want nil", err)
	}
	if got := coord.Status().State; got != state.StateIdle {
		t.Errorf("Status().State = %v, want Idle", got)
	}
}

func TestCoordinator_SetCommands(t *testing.T) {
	coord, _ := newTestCoordinator(t, nil, nil)
	ctx := context.Background()
	store := coord.Store()

	if err := coord.Dispatch(ctx, &command.AddRegion{Region: testRegion("a")}); err != nil {
		t.Fatalf("AddRegion error = %v", err)
	}
	if err := coord.Dispatch(ctx, &command.SaveSet{Name: "copy"}); err != nil {
		t.Fatalf("SaveSet error = %v", err)
	}
	if got := store.ActiveName(); got != "copy" {
		t.Errorf("ActiveName() = %q, want copy", got)
	}
	if got := len(store.Active()); got != 1 {
		t.Errorf("len(Active()) = %d, want 1", got)
	}

	if err := coord.Dispatch(ctx, command.NewSetRegionEnabled("a", false)); err != nil {
		t.Fatalf("SetRegionEnabled error = %v", err)
	}
	if store.Active()[0].Enabled {
		t.Error("region a should be disabled")
	}
	if err := coord.Dispatch(ctx, command.NewUpdateRegion("a", testRegion("b"))); err != nil {
		t.Fatalf("UpdateRegion error = %v", err)
	}
	if err := coord.Dispatch(ctx, command.NewRemoveRegion("a")); !errors.Is(err, regionset.ErrRegionNotFound) {
		t.Errorf("RemoveRegion(a) error = %v, want ErrRegionNotFound", err)
	}
	if err := coord.Dispatch(ctx, &command.ClearRegions{}); err != nil {
		t.Fatalf("ClearRegions error = %v", err)
	}
	if got := len(store.Active()); got != 0 {
		t.Errorf("len(Active()) = %d, want 0", got)
	}

	if err := coord.Dispatch(ctx, &command.LoadSet{Name: regionset.DefaultSetName}); err != nil {
		t.Fatalf("LoadSet error = %v", err)
	}
	if err := coord.Dispatch(ctx, &command.DeleteSet{Name: "copy"}); err != nil {
		t.Fatalf("DeleteSet error = %v", err)
	}
	if err := coord.Dispatch(ctx, &command.LoadSet{Name: "copy"}); !errors.Is(err, regionset.ErrSetNotFound) {
		t.Errorf("LoadSet(copy) error = %v, want ErrSetNotFound", err)
	}
}

func TestCoordinator_StartMonitor(t *testing.T) {
	coord, mon := newTestCoordinator(t, nil, nil)
	ctx := context.Background()

	if err := coord.Store().SaveAsSet("work", []region.Region{testRegion("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := coord.Store().LoadSet(regionset.DefaultSetName); err != nil {
		t.Fatal(err)
	}

	if err := coord.Dispatch(ctx, &command.StartMonitor{SetName: "work"}); err != nil {
		t.Fatalf("StartMonitor error = %v", err)
	}
	if got := coord.Store().ActiveName(); got != "work" {
		t.Errorf("ActiveName() = %q, want work", got)
	}
	if mon.starts != 1 {
		t.Errorf("starts = %d, want 1", mon.starts)
	}

	err := coord.Dispatch(ctx, &command.StartMonitor{SetName: regionset.DefaultSetName})
	if !errors.Is(err, monitor.ErrAlreadyRunning) {
		t.Errorf("StartMonitor(other set) while running error = %v, want ErrAlreadyRunning", err)
	}
	if got := coord.Store().ActiveName(); got != "work" {
		t.Errorf("ActiveName() = %q, want work", got)
	}

	if err := coord.Dispatch(ctx, &command.StartMonitor{SetName: "missing"}); err == nil {
		t.Error("StartMonitor(missing) error = nil, want error")
	}
}

func TestCoordinator_Stop(t *testing.T) {
	coord, mon := newTestCoordinator(t, nil, nil)
	ctx := context.Background()

	if err := coord.Dispatch(ctx, &command.StopMonitor{}); err != nil {
		t.Errorf("StopMonitor error = %v", err)
	}
	if err := coord.Dispatch(ctx, &command.EmergencyStop{}); err != nil {
		t.Errorf("EmergencyStop error = %v", err)
	}
	if mon.stops != 1 || mon.emergencies != 1 {
		t.Errorf("stops = %d, emergencies = %d, want 1, 1", mon.stops, mon.emergencies)
	}

	mon.stopResult = false
	if err := coord.Dispatch(ctx, &command.StopMonitor{}); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("StopMonitor error = %v, want ErrStopTimeout", err)
	}
}

func TestCoordinator_ToggleMonitor(t *testing.T) {
	coord, mon := newTestCoordinator(t, nil, nil)
	ctx := context.Background()

	if err := coord.Dispatch(ctx, &command.ToggleMonitor{}); err != nil {
		t.Fatalf("first ToggleMonitor error = %v", err)
	}
	if !mon.IsRunning() || mon.starts != 1 {
		t.Errorf("after first toggle running = %v, starts = %d, want running once", mon.IsRunning(), mon.starts)
	}
	if err := coord.Dispatch(ctx, &command.ToggleMonitor{}); err != nil {
		t.Fatalf("second ToggleMonitor error = %v", err)
	}
	if mon.IsRunning() || mon.stops != 1 {
		t.Errorf("after second toggle running = %v, stops = %d, want stopped once", mon.IsRunning(), mon.stops)
	}
}

func TestCoordinator_Probe(t *testing.T) {
	bus := eventbus.New(16)
	var (
		mu     sync.Mutex
		probed []*event.RegionProbed
	)
	bus.Subscribe(func(e event.Event) {
		if p, ok := e.(*event.RegionProbed); ok {
			mu.Lock()
			probed = append(probed, p)
			mu.Unlock()
		}
	})

	coord, mon := newTestCoordinator(t, bus, nil)
	mon.probeResult = monitor.ProbeResult{Text: "OK", Decision: region.Decision{Triggered: true, Reason: region.ReasonTarget}}
	ctx := context.Background()

	if err := coord.Dispatch(ctx, command.NewProbeRegion("nope")); !errors.Is(err, regionset.ErrRegionNotFound) {
		t.Errorf("ProbeRegion(nope) error = %v, want ErrRegionNotFound", err)
	}

	if err := coord.Store().AddRegion(testRegion("a")); err != nil {
		t.Fatal(err)
	}
	res, err := coord.Probe(ctx, "a")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if !res.Decision.Triggered || res.Text != "OK" {
		t.Errorf("Probe() = %+v, want triggered OK", res)
	}

	bus.Close()
	mu.Lock()
	defer mu.Unlock()
	if len(probed) != 1 || probed[0].RegionName() != "a" || probed[0].Reason != "target" {
		t.Errorf("probed events = %+v, want one for a", probed)
	}
}

func TestCoordinator_RecordsTriggers(t *testing.T) {
	bus := eventbus.New(16)
	rec := &fakeRecorder{}
	newTestCoordinator(t, bus, rec)

	bus.Publish(event.NewRegionTriggered("run-1", "work", "a", "OK", "", "target"))
	bus.Publish(event.NewRegionFailed("run-1", "a", "capture", errors.New("x")))
	bus.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	got := rec.records[0]
	if got.RunID != "run-1" || got.SetName != "work" || got.Region != "a" || got.DetectedText != "OK" {
		t.Errorf("record = %+v", got)
	}
}

type unknownCommand struct{}

func (unknownCommand) CommandName() string { return "Unknown" }

func TestCoordinator_UnknownCommand(t *testing.T) {
	coord, _ := newTestCoordinator(t, nil, nil)
	if err := coord.Dispatch(context.Background(), unknownCommand{}); err == nil {
		t.Error("Dispatch(unknown) error = nil, want error")
	}
}
