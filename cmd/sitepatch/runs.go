package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joestump/sitepatch/internal/inject"
	"github.com/joestump/sitepatch/internal/store"
)

func newRunsCmd(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show recorded apply and generate runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.close()

			hist, err := env.openHistory()
			if err != nil {
				return err
			}
			if hist == nil {
				return errHistoryDisabled
			}
			defer hist.close()

			ctx := cmd.Context()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				runs, err := hist.runs.List(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tCOMMAND\tSTARTED\tDURATION\tUPDATED\tUNCHANGED\tERRORED")
				for _, r := range runs {
					command := r.Command
					if r.DryRun {
						command += " (dry run)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
						r.ID, command, r.StartedAt.Local().Format(time.DateTime), duration(r), r.Updated, r.Unchanged, r.Errored)
				}
				return nil
			}

			run, err := hist.runs.Get(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}
			files, err := hist.runs.Files(ctx, run.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "run %s: %s, started %s, took %s\n\n", run.ID, run.Command, run.StartedAt.Local().Format(time.DateTime), duration(run))
			fmt.Fprintln(w, "STATUS\tPATH\tFRAGMENTS\tMESSAGE")
			for _, f := range files {
				applied := 0
				for _, o := range f.Outcomes {
					if o.Outcome == string(inject.Applied) {
						applied++
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%d/%d applied\t%s\n", statusLabel(f.Status, run.DryRun), f.Path, applied, len(f.Outcomes), f.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	return cmd
}

func duration(r *store.Run) string {
	if r.FinishedAt == nil {
		return color.New(color.FgYellow).Sprint("unfinished")
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}
