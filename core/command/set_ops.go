package command

import "textmacro-go/domain/region"

// SaveSet stores Regions (or the active list when nil) under Name and activates it.
type SaveSet struct {
	Name    string
	Regions []region.Region
}

func (c *SaveSet) CommandName() string {
	return "SaveSet"
}

// LoadSet activates a stored set.
type LoadSet struct {
	Name string
}

func (c *LoadSet) CommandName() string {
	return "LoadSet"
}

// DeleteSet removes a stored set.
type DeleteSet struct {
	Name string
}

func (c *DeleteSet) CommandName() string {
	return "DeleteSet"
}

// AddRegion appends a region to the active set.
type AddRegion struct {
	Region region.Region
}

func (c *AddRegion) CommandName() string {
	return "AddRegion"
}

// UpdateRegion replaces a region of the active set.
type UpdateRegion struct {
	baseRegionCommand
	Region region.Region
}

func NewUpdateRegion(regionName string, r region.Region) *UpdateRegion {
	return &UpdateRegion{baseRegionCommand: baseRegionCommand{regionName: regionName}, Region: r}
}

func (c *UpdateRegion) CommandName() string {
	return "UpdateRegion"
}

// RemoveRegion deletes a region from the active set.
type RemoveRegion struct {
	baseRegionCommand
}

func NewRemoveRegion(regionName string) *RemoveRegion {
	return &RemoveRegion{baseRegionCommand{regionName: regionName}}
}

func (c *RemoveRegion) CommandName() string {
	return "RemoveRegion"
}

// SetRegionEnabled enables or disables a region of the active set.
type SetRegionEnabled struct {
	baseRegionCommand
	Enabled bool
}

func NewSetRegionEnabled(regionName string, enabled bool) *SetRegionEnabled {
	return &SetRegionEnabled{baseRegionCommand: baseRegionCommand{regionName: regionName}, Enabled: enabled}
}

func (c *SetRegionEnabled) CommandName() string {
	return "SetRegionEnabled"
}

// ClearRegions removes every region from the active set.
type ClearRegions struct{}

func (c *ClearRegions) CommandName() string {
	return "ClearRegions"
}
