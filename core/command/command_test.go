package command

import (
	"testing"

	"textmacro-go/domain/region"
)

func TestCommand_Names(t *testing.T) {
	tests := []struct {
		cmd      Command
		expected string
	}{
		{&StartMonitor{}, "StartMonitor"},
		{&StopMonitor{}, "StopMonitor"},
		{&EmergencyStop{}, "EmergencyStop"},
		{&ToggleMonitor{}, "ToggleMonitor"},
		{NewProbeRegion("r1"), "ProbeRegion"},
		{&SaveSet{Name: "s"}, "SaveSet"},
		{&LoadSet{Name: "s"}, "LoadSet"},
		{&DeleteSet{Name: "s"}, "DeleteSet"},
		{&AddRegion{}, "AddRegion"},
		{NewUpdateRegion("r1", region.Region{}), "UpdateRegion"},
		{NewRemoveRegion("r1"), "RemoveRegion"},
		{NewSetRegionEnabled("r1", false), "SetRegionEnabled"},
		{&ClearRegions{}, "ClearRegions"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.cmd.CommandName(); got != tt.expected {
				t.Errorf("CommandName() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRegionCommand_RegionName(t *testing.T) {
	tests := []struct {
		name     string
		cmd      RegionCommand
		expected string
	}{
		{"ProbeRegion", NewProbeRegion("ok-button"), "ok-button"},
		{"UpdateRegion", NewUpdateRegion("title", region.Region{Name: "title2"}), "title"},
		{"RemoveRegion", NewRemoveRegion("dialog"), "dialog"},
		{"SetRegionEnabled", NewSetRegionEnabled("banner", true), "banner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.RegionName(); got != tt.expected {
				t.Errorf("RegionName() = %v, want %v", got, tt.expected)
			}
		})
	}
}
