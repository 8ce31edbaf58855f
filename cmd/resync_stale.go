package cmd

import (
	"github.com/spf13/cobra"
)

var (
	resyncLimit int
	resyncHours int
)

var resyncStaleCmd = &cobra.Command{
	Use:   "resync-stale",
	Short: "Refresh bills that are missing a summary or have not synced recently",
	Long: `Resync-stale re-fetches active bills whose summary is missing or whose
last sync is older than --hours, updating title, summary, status and
latest action.`,
	Run: runResyncStale,
}

func init() {
	rootCmd.AddCommand(resyncStaleCmd)

	resyncStaleCmd.Flags().IntVarP(&resyncLimit, "limit", "l", 50, "Maximum number of bills to refresh")
	resyncStaleCmd.Flags().IntVar(&resyncHours, "hours", 24, "Refresh bills not synced within this many hours")
}

func runResyncStale(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	db := openDB(ctx)
	defer db.Close()

	synchronizer := newSynchronizer(db)

	stats, err := synchronizer.ResyncStale(ctx, resyncLimit, resyncHours)
	if stats != nil {
		synchronizer.PrintSummary("Stale resync", stats)
	}
	exitOnFailure(ctx, "Stale resync", stats, err)
}
