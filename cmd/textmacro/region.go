package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"textmacro-go/core/command"
	"textmacro-go/domain/regionset"
	"textmacro-go/presentation"
)

func newRegionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Add, change or remove regions of the active set",
		Example: `  textmacro region add ok --rect 100,200,160,40 --target OK --action click:180,220
  textmacro region add level --rect 0,0,80,20 --compare 0,40,80,20 --compare-only --action key:f5
  textmacro region update ok --action hotkey:ctrl+s --action wait:0.5
  textmacro region remove ok`,
	}
	cmd.AddCommand(
		newRegionAddCmd(opts),
		newRegionUpdateCmd(opts),
		newRegionRemoveCmd(opts),
		newRegionClearCmd(opts),
	)
	return cmd
}

// editActive opens the store and dispatches the command built by build.
func editActive(cmd *cobra.Command, opts *rootOptions, build func(a *app) (command.Command, error)) error {
	a, err := newApp(cmd.Context(), opts, stageStore)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // store already persisted

	c, err := build(a)
	if err != nil {
		return err
	}
	if err := a.coordinator.Dispatch(cmd.Context(), c); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %q now has %d regions\n", a.store.ActiveName(), len(a.store.Active()))
	return nil
}

func newRegionAddCmd(opts *rootOptions) *cobra.Command {
	var flags presentation.RegionFlags
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a region to the active set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editActive(cmd, opts, func(a *app) (command.Command, error) {
				r, err := flags.NewRegion(cmd.Flags(), args[0])
				if err != nil {
					return nil, err
				}
				return &command.AddRegion{Region: r}, nil
			})
		},
	}
	flags.Register(cmd.Flags())
	return cmd
}

func newRegionUpdateCmd(opts *rootOptions) *cobra.Command {
	var flags presentation.RegionFlags
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change the given fields of a region; --action replaces all actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editActive(cmd, opts, func(a *app) (command.Command, error) {
				name := args[0]
				for _, r := range a.store.Active() {
					if r.Name != name {
						continue
					}
					if err := flags.Apply(cmd.Flags(), &r); err != nil {
						return nil, err
					}
					return command.NewUpdateRegion(name, r), nil
				}
				return nil, fmt.Errorf("%w: %s", regionset.ErrRegionNotFound, name)
			})
		},
	}
	flags.Register(cmd.Flags())
	return cmd
}

func newRegionRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a region from the active set",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editActive(cmd, opts, func(a *app) (command.Command, error) {
				return command.NewRemoveRegion(args[0]), nil
			})
		},
	}
}

func newRegionClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every region from the active set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editActive(cmd, opts, func(a *app) (command.Command, error) {
				return &command.ClearRegions{}, nil
			})
		},
	}
}
