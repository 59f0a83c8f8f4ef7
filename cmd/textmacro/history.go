package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		regionName string
		limit      int
		since      time.Duration
		prune      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded region triggers",
		Long: `Show recorded region triggers, newest first.

With --since, print trigger counts per region for that window instead.
With --prune, delete records older than the given age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, stageStore)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read only

			if err := a.openHistory(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if prune > 0 {
				n, err := a.history.Prune(ctx, time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %d records older than %s\n", n, prune)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			if since > 0 {
				counts, err := a.history.CountByRegion(ctx, time.Now().Add(-since))
				if err != nil {
					return err
				}
				names := make([]string, 0, len(counts))
				for name := range counts {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(w, "REGION\tTRIGGERS")
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
				}
				return w.Flush()
			}

			records, err := a.history.Recent(ctx, regionName, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "no triggers recorded")
				return nil
			}
			fmt.Fprintln(w, "TIME\tSET\tREGION\tREASON\tTEXT")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%q\n",
					rec.At.Local().Format("2006-01-02 15:04:05"), rec.SetName, rec.Region, rec.Reason, rec.DetectedText)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&regionName, "region", "r", "", "only show triggers of this region")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of records")
	cmd.Flags().DurationVar(&since, "since", 0, "count triggers per region over this window, e.g. 24h")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete records older than this age, e.g. 720h")
	return cmd
}
