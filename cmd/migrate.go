package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		db := openDB(ctx)
		defer db.Close()

		if err := store.Migrate(ctx, db); err != nil {
			log.Fatal("Migration failed", err, nil)
		}
		log.Info("Database schema is up to date", nil)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
