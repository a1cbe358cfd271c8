package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joestump/sitepatch/internal/site"
)

func newVerifyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report department pages that are missing",
		Long:  "verify checks that every department directory holds the required pages. It only reports; the exit status is 0 even when pages are missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.close()

			cat, err := env.catalog()
			if err != nil {
				return err
			}
			codes := make([]string, len(cat.Departments))
			for i, d := range cat.Departments {
				codes[i] = d.Code
			}

			missing, err := site.Verify(env.cfg.Root, codes, cat.RequiredPages)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range missing {
				fmt.Fprintf(out, "  %s %s\n", color.New(color.FgRed).Sprint("MISSING"), m.Path())
			}
			if len(missing) == 0 {
				fmt.Fprintf(out, "%s all %d departments have %d required pages\n",
					color.New(color.FgGreen).Sprint("✓"), len(codes), len(cat.RequiredPages))
				return nil
			}
			fmt.Fprintf(out, "\n%s\n", color.New(color.FgYellow).Sprintf("%d required pages missing", len(missing)))
			return nil
		},
	}
}
