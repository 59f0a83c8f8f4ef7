package repository

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"textmacro-go/domain/region"
)

func everyActionRegion() region.Region {
	return region.New("ok-button", region.Rect{X: 10, Y: 20, Width: 200, Height: 80}, "OK",
		region.Click{X: 0, Y: 0, Button: region.ButtonRight},
		region.KeyPress{Key: "enter"},
		region.Hotkey{Keys: []string{"ctrl", "s"}},
		region.TypeText{Text: "こんにちは"},
		region.Move{X: 5, Y: 6},
		region.Wait{Seconds: 0},
		region.Scroll{Clicks: -3},
	)
}

func TestRegionRecord_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   region.Region
	}{
		{"every action kind", everyActionRegion()},
		{"comparison only", region.New("cmp", region.Rect{Width: 1, Height: 1}, "").
			WithComparison(region.Rect{X: 3, Y: 4, Width: 5, Height: 6}, true)},
		{"disabled without actions", func() region.Region {
			r := region.New("off", region.Rect{Width: 2, Height: 2}, "x")
			r.Enabled = false
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := regionToRecord(tt.in)
			if err != nil {
				t.Fatalf("regionToRecord() error = %v", err)
			}
			data, err := json.Marshal(rec)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var decoded regionRecord
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			got, err := recordToRegion(decoded)
			if err != nil {
				t.Fatalf("recordToRegion() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.in) {
				t.Errorf("round trip = %+v, want %+v", got, tt.in)
			}
		})
	}
}

func TestRegionRecord_CompareRegionOmittedWhenDisabled(t *testing.T) {
	rec, err := regionToRecord(region.New("a", region.Rect{Width: 1, Height: 1}, "x"))
	if err != nil {
		t.Fatalf("regionToRecord() error = %v", err)
	}
	data, _ := json.Marshal(rec)
	if strings.Contains(string(data), "compare_region") {
		t.Errorf("json = %s, want no compare_region", data)
	}
}

func TestRecordToRegion_LegacyFields(t *testing.T) {
	// Older files omit enabled, keep a comparison rectangle while comparison
	// is off, and leave out wait durations and scroll clicks.
	data := `{
		"name": "legacy", "x": 1, "y": 2, "width": 3, "height": 4,
		"target_text": "go",
		"compare_enabled": false,
		"compare_region": {"x": 0, "y": 0, "width": 9, "height": 9},
		"actions": [{"type": "wait"}, {"type": "scroll"}, {"type": "click", "x": 7, "y": 8}]
	}`
	var rec regionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	got, err := recordToRegion(rec)
	if err != nil {
		t.Fatalf("recordToRegion() error = %v", err)
	}
	if !got.Enabled {
		t.Errorf("Enabled = %v, want true", got.Enabled)
	}
	if got.CompareRegion != nil {
		t.Errorf("CompareRegion = %v, want nil", got.CompareRegion)
	}
	want := []region.Action{
		region.Wait{Seconds: 1},
		region.Scroll{Clicks: 1},
		region.Click{X: 7, Y: 8},
	}
	if !reflect.DeepEqual(got.Actions, want) {
		t.Errorf("Actions = %v, want %v", got.Actions, want)
	}
}

func TestRecordToAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		rec  actionRecord
		want error
	}{
		{"unknown type", actionRecord{Type: "drag"}, region.ErrUnknownActionKind},
		{"missing type", actionRecord{}, region.ErrUnknownActionKind},
		{"empty key", actionRecord{Type: "key"}, region.ErrInvalidAction},
		{"empty hotkey", actionRecord{Type: "hotkey"}, region.ErrInvalidAction},
		{"bad button", actionRecord{Type: "click", Button: "thumb"}, region.ErrInvalidAction},
		{"zero scroll", actionRecord{Type: "scroll", Clicks: intPtr(0)}, region.ErrInvalidAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := recordToAction(tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("recordToAction() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecordToRegion_Invalid(t *testing.T) {
	rec := regionRecord{Name: "cmp", Width: 1, Height: 1, CompareEnabled: true}
	if _, err := recordToRegion(rec); !errors.Is(err, region.ErrInvalidRegion) {
		t.Errorf("recordToRegion() error = %v, want ErrInvalidRegion", err)
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-01-02T03:04:05Z", "2025-01-02T03:04:05.123456", "2025-01-02T03:04:05"} {
		if _, err := parseTime(s); err != nil {
			t.Errorf("parseTime(%q) error = %v", s, err)
		}
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Error("parseTime(yesterday) error = nil, want error")
	}
}
