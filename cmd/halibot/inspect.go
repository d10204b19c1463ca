package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/halibot/internal/persistence"
	"github.com/talgya/halibot/internal/replay"
)

func runsCmd(opts *options) *cobra.Command {
	limit := 20
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List games recorded in the telemetry database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dbPath == "" {
				return fmt.Errorf("runs: --db is required")
			}
			st, err := persistence.Open(opts.dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tSEED\tSIZE\tSCORE\tWARNINGS")
			for _, r := range runs {
				counts, err := st.KindCounts(r.ID)
				if err != nil {
					return fmt.Errorf("count events: %w", err)
				}
				warnings := counts["search_failed"] + counts["stranded"] + counts["forced_stay"] + counts["deadline"]
				fmt.Fprintf(tw, "%s\t%s\t%d\t%dx%d\t%s\t%d\n",
					r.ID, humanize.Time(time.UnixMilli(r.Started)), r.Seed, r.Width, r.Height,
					humanize.Comma(int64(r.Score)), warnings)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "number of runs to show")
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Print a visualizer log as plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := replay.ReadAll(args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Printf("t=%d (%d,%d) %s %s\n", m.T, m.X, m.Y, m.Color, m.Msg)
			}
			return nil
		},
	}
}
