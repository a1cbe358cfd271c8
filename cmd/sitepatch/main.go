package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "sitepatch",
		Short:         "Idempotent HTML fragment injection for a static site",
		Long:          "sitepatch keeps shared markup, styles and scripts in sync across every page of a static site.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.root, "root", "", "site root (overrides SITEPATCH_ROOT)")
	flags.StringVar(&opts.catalogDir, "catalog", "", "catalog directory to use instead of the built-in one")
	flags.BoolVar(&opts.debug, "debug", false, "log every fragment decision")

	rootCmd.AddCommand(newApplyCmd(opts))
	rootCmd.AddCommand(newGenerateCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newFragmentsCmd(opts))
	rootCmd.AddCommand(newRunsCmd(opts))
	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}
