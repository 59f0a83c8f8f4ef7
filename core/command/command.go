// Package command defines all commands that can be sent to the application.
// Commands represent user intentions and are processed by the application layer.
package command

// Command is the base interface for all commands.
// Commands are sent from the presentation layer to the application layer.
type Command interface {
	// CommandName returns the name of the command for logging/debugging
	CommandName() string
}

// RegionCommand is a command that targets a region of the active set.
type RegionCommand interface {
	Command
	// RegionName returns the target region name
	RegionName() string
}

// baseRegionCommand provides common implementation for region commands.
type baseRegionCommand struct {
	regionName string
}

func (c *baseRegionCommand) RegionName() string {
	return c.regionName
}
