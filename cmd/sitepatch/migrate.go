package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joestump/sitepatch/internal/db"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run run-history database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts)
			if err != nil {
				return err
			}
			defer env.close()

			database, err := db.New(env.cfg.DB.Driver, env.cfg.HistoryDSN())
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, env.cfg.DB.Driver); err != nil {
				return err
			}

			env.log.Info("migrations complete", zap.String("driver", env.cfg.DB.Driver))
			return nil
		},
	}
}
