package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/videoconf/internal/app"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "apply the database schema or mongo indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := initialize(cmd)
		if err != nil {
			return err
		}

		st, err := app.OpenStore(context.Background(), cfg.Storage, logger)
		if err != nil {
			return err
		}
		logger.Info().Str("driver", cfg.Storage.Driver).Msg("migration complete")
		return st.Close()
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
