package main

import (
	"blockconnect/pkg/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|status|reset>",
	Short:     "Apply the embedded postgres migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := database.Migrate(cfg, args[0]); err != nil {
			return err
		}
		log.Info("Migration %s finished", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
