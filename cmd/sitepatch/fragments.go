package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newFragmentsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fragments [set]",
		Short: "List fragment sets with their markers and anchors",
		Args:  cobra.MaximumNArgs(1),
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
			sets, err := cat.Select(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bold := color.New(color.Bold)
			for _, s := range sets {
				fmt.Fprintf(out, "%s  %s\n", bold.Sprint(s.Name), s.Description)
				fmt.Fprintf(out, "  targets: %s\n", strings.Join(s.Targets, ", "))
				for _, f := range s.Fragments {
					id := f.ID
					if f.EachDepartment {
						id += "-<dept>"
					}
					fmt.Fprintf(out, "  - %s\n", color.New(color.FgCyan).Sprint(id))
					fmt.Fprintf(out, "      marker:   %s\n", f.Marker)
					fmt.Fprintf(out, "      anchor:   %s\n", f.Anchor)
					if len(f.Requires) > 0 {
						fmt.Fprintf(out, "      requires: %s\n", strings.Join(f.Requires, ", "))
					}
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
