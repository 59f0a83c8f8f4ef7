package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textmacro-go/infrastructure/repository"
	"textmacro-go/presentation"
)

func newSetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "List saved region sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, stageStore)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read only

			presentation.PrintSets(cmd.OutOrStdout(), a.store)
			return nil
		},
	}
}

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions [set]",
		Short: "List the regions of the active set (or the named one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, stageStore)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read only

			regions := a.store.Active()
			if len(args) == 1 {
				set, ok := a.store.Get(args[0])
				if !ok {
					return fmt.Errorf("region set %q not found", args[0])
				}
				regions = set.Regions
			}
			presentation.PrintRegions(cmd.OutOrStdout(), regions)
			return nil
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every region set to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, stageStore)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read only

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			snap := a.store.Snapshot()
			if err := repository.Encode(f, &snap); err != nil {
				f.Close()
				return fmt.Errorf("failed to export region sets: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sets to %s\n", len(snap.Sets), args[0])
			return nil
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge region sets from a JSON file, replacing sets with the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			snap, decodeErr := repository.Decode(f)
			if errors.Is(decodeErr, repository.ErrMalformed) {
				return fmt.Errorf("failed to read %s: %w", args[0], decodeErr)
			}
			if decodeErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: some sets were skipped: %v\n", decodeErr)
			}

			a, err := newApp(cmd.Context(), opts, stageStore)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // store already persisted

			n, err := a.store.Import(*snap)
			if err != nil {
				if n == 0 {
					return fmt.Errorf("failed to import region sets: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sets from %s\n", n, args[0])
			return nil
		},
	}
}
