package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joestump/sitepatch/internal/runner"
	"github.com/joestump/sitepatch/internal/site"
	"github.com/joestump/sitepatch/internal/store"
)

func newApplyCmd(opts *globalOptions) *cobra.Command {
	var (
		sets    []string
		dryRun  bool
		jobs    int
		diff    bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Inject catalog fragments into every page of the site",
		Long: "apply walks the site, injects every fragment whose marker is absent and rewrites " +
			"only the files that changed. Running it twice leaves the site unchanged the second time.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.close()
			defer env.observe("apply", start)
			if cmd.Flags().Changed("jobs") {
				env.cfg.Jobs = jobs
			}

			cat, err := env.catalog()
			if err != nil {
				return err
			}
			selected, err := cat.Select(sets)
			if err != nil {
				return err
			}
			files, err := site.Discover(env.cfg.Root, env.cfg.Include, env.cfg.Exclude)
			if err != nil {
				return err
			}
			env.log.Info("applying catalog",
				zap.String("root", env.cfg.Root),
				zap.Int("files", len(files)),
				zap.Int("sets", len(selected)),
				zap.Bool("dry_run", dryRun))

			hist, err := env.openHistory()
			if err != nil {
				return err
			}
			defer hist.close()

			ctx := cmd.Context()
			r := &runner.Runner{
				Root:    env.cfg.Root,
				Catalog: cat,
				Sets:    selected,
				Jobs:    env.cfg.Jobs,
				DryRun:  dryRun,
				Diff:    diff,
				Logger:  env.log,
			}
			if hist != nil {
				r.Recorder = hist.runs
				r.RunID = hist.start(ctx, env.log, "apply", dryRun)
			}

			sum, err := r.Run(ctx, files)
			hist.finish(ctx, env.log, r.RunID, store.Counts{
				Updated:   sum.Updated,
				Unchanged: sum.Unchanged,
				Errored:   sum.Errored,
			})
			if err != nil {
				return err
			}

			printApplySummary(cmd.OutOrStdout(), sum, dryRun, verbose)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "fragment set to apply (repeatable, \"all\" for every set)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().IntVar(&jobs, "jobs", 1, "files processed concurrently (overrides SITEPATCH_JOBS)")
	cmd.Flags().BoolVar(&diff, "diff", false, "with --dry-run, print a unified diff per changed file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list unchanged files too")
	return cmd
}
