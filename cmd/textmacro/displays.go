package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"textmacro-go/infrastructure/screen"
)

func newDisplaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List attached displays and their desktop coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			displays, err := screen.Displays()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tX\tY\tWIDTH\tHEIGHT")
			for _, d := range displays {
				b := d.Bounds
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", d.Index, b.Min.X, b.Min.Y, b.Dx(), b.Dy())
			}
			return w.Flush()
		},
	}
}
