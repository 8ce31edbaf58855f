package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/model"
)

var (
	syncAllCongress  int
	syncAllBatchSize int
	syncAllDelay     time.Duration
)

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync every bill of a Congress in batches",
	Long: `Sync-all reads the total bill count for a Congress and syncs it batch by
batch, pausing between batches to stay within the API rate limit.
This takes a long time for a full Congress.`,
	Run: runSyncAll,
}

func init() {
	rootCmd.AddCommand(syncAllCmd)

	syncAllCmd.Flags().IntVarP(&syncAllCongress, "congress", "c", model.CurrentCongress(time.Now()), "Congress number")
	syncAllCmd.Flags().IntVarP(&syncAllBatchSize, "batch-size", "b", 250, "Bills per batch")
	syncAllCmd.Flags().DurationVar(&syncAllDelay, "delay", 5*time.Second, "Pause between batches")
}

func runSyncAll(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	db := openDB(ctx)
	defer db.Close()

	synchronizer := newSynchronizer(db)

	stats, err := synchronizer.SyncAll(ctx, syncAllCongress, syncAllBatchSize, syncAllDelay)
	if stats != nil {
		synchronizer.PrintSummary("Full sync", stats)
	}
	exitOnFailure(ctx, "Full sync", stats, err)
}
