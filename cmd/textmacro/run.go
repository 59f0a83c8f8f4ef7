package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"textmacro-go/core/command"
	"textmacro-go/presentation"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [set]",
		Short: "Monitor the active region set (or the named one) until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, opts, stageFull)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit
			a.attachConsole(opts.verbose)

			start := &command.StartMonitor{}
			if len(args) == 1 {
				start.SetName = args[0]
			}
			if err := a.coordinator.Dispatch(ctx, start); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop.")

			select {
			case <-ctx.Done():
				return a.coordinator.Dispatch(context.Background(), &command.StopMonitor{})
			case <-a.monitor.Done():
				// Stopped remotely or by a worker failure, already reported.
				return nil
			}
		},
	}
}

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive console to start, stop and inspect monitoring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, opts, stageFull)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit
			a.attachConsole(opts.verbose)

			shell := presentation.NewShell(a.coordinator, cmd.InOrStdin(), cmd.OutOrStdout())
			return shell.Run(ctx)
		},
	}
}

func newTestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <region>",
		Short: "Recognize one region of the active set once, without running its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, stageMonitor)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // best effort on exit

			res, err := a.coordinator.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			presentation.PrintProbe(cmd.OutOrStdout(), res)
			return nil
		},
	}
}
