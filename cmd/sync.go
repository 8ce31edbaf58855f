package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/model"
)

var (
	syncCongress int
	syncBillType string
	syncLimit    int
	syncOffset   int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync one page of bills from the congress.gov API",
	Long: `Sync fetches a page of bills for a Congress and stores each bill with
its sponsor, cosponsors, actions, text versions, committees and subjects.
Existing bills are updated in place.

Examples:
  # Sync the 20 most recent bills of the current Congress
  ./billpulse sync

  # Sync House bills of the 118th Congress, second page of 100
  ./billpulse sync --congress 118 --type hr --limit 100 --offset 100`,
	Run: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().IntVarP(&syncCongress, "congress", "c", model.CurrentCongress(time.Now()), "Congress number")
	syncCmd.Flags().StringVarP(&syncBillType, "type", "t", "", "Bill type to sync (hr, s, hjres, ...); all types when empty")
	syncCmd.Flags().IntVarP(&syncLimit, "limit", "l", 20, "Number of bills to fetch")
	syncCmd.Flags().IntVarP(&syncOffset, "offset", "o", 0, "Offset into the bill listing")
}

func runSync(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	db := openDB(ctx)
	defer db.Close()

	synchronizer := newSynchronizer(db)

	log.Info("Starting bill sync", map[string]interface{}{
		"congress": syncCongress,
		"type":     syncBillType,
		"limit":    syncLimit,
		"offset":   syncOffset,
	})
	stats, err := synchronizer.SyncBatch(ctx, syncCongress, syncBillType, syncLimit, syncOffset)
	if stats != nil {
		synchronizer.PrintSummary("Sync", stats)
	}
	exitOnFailure(ctx, "Sync", stats, err)
}
