package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joestump/sitepatch/internal/expand"
	"github.com/joestump/sitepatch/internal/runner"
	"github.com/joestump/sitepatch/internal/store"
)

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		depts   []string
		recipes []string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render per-department pages from their template pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.close()
			defer env.observe("generate", start)

			cat, err := env.catalog()
			if err != nil {
				return err
			}
			jobs, err := cat.Jobs(recipes, depts)
			if err != nil {
				return err
			}

			hist, err := env.openHistory()
			if err != nil {
				return err
			}
			defer hist.close()

			ctx := cmd.Context()
			runID := hist.start(ctx, env.log, "generate", dryRun)
			g := &expand.Generator{Root: env.cfg.Root, DryRun: dryRun, Logger: env.log}
			results := g.Run(ctx, jobs)

			var rec runner.Recorder
			if hist != nil && runID != "" {
				rec = hist.runs
			}
			counts, reports, recordErr := recordGenerated(ctx, rec, runID, results)

			out := cmd.OutOrStdout()
			for i, res := range results {
				fmt.Fprintf(out, "  %s %s <- %s", statusLabel(reports[i].Status, dryRun), res.Job.Output, res.Job.Template)
				if res.Err != nil {
					fmt.Fprintf(out, ": %v", res.Err)
				}
				fmt.Fprintln(out)
			}
			hist.finish(ctx, env.log, runID, counts)
			if err := ctx.Err(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d pages: %s changed, %d unchanged, %s\n",
				len(results), color.New(color.FgGreen).Sprint(counts.Updated), counts.Unchanged, errored(counts.Errored))
			return recordErr
		},
	}

	cmd.Flags().StringArrayVar(&depts, "dept", nil, "department code to render (repeatable, default all)")
	cmd.Flags().StringArrayVar(&recipes, "recipe", nil, "recipe to run (repeatable, default all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

// recordGenerated turns generator results into file reports and stores them
// when rec is set. A failed write does not stop the remaining ones; the
// failures are joined into the returned error.
func recordGenerated(ctx context.Context, rec runner.Recorder, runID string, results []expand.Result) (store.Counts, []store.FileReport, error) {
	var (
		counts  store.Counts
		reports = make([]store.FileReport, len(results))
		errs    []error
	)
	for i, res := range results {
		report := store.FileReport{Path: res.Job.Output}
		switch {
		case res.Err != nil:
			report.Status = store.StatusErrored
			report.Message = res.Err.Error()
			counts.Errored++
		case res.Changed:
			report.Status = store.StatusUpdated
			counts.Updated++
		default:
			report.Status = store.StatusUnchanged
			counts.Unchanged++
		}
		reports[i] = report
		if rec == nil {
			continue
		}
		if err := rec.RecordFile(ctx, runID, report); err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", report.Path, err))
		}
	}
	return counts, reports, errors.Join(errs...)
}
