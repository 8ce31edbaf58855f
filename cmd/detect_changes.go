package cmd

import (
	"github.com/spf13/cobra"
)

var (
	detectLimit int
	detectHours int
)

var detectChangesCmd = &cobra.Command{
	Use:   "detect-changes",
	Short: "Re-sync active bills and flag status changes for followers",
	Long: `Detect-changes re-syncs active bills that have not been synced within
--hours. When a bill's status changes, followers who asked for status
notifications and are outside the notification window are marked notified.`,
	Run: runDetectChanges,
}

func init() {
	rootCmd.AddCommand(detectChangesCmd)

	detectChangesCmd.Flags().IntVarP(&detectLimit, "limit", "l", 50, "Maximum number of bills to check")
	detectChangesCmd.Flags().IntVar(&detectHours, "hours", 6, "Check bills not synced within this many hours")
}

func runDetectChanges(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	db := openDB(ctx)
	defer db.Close()

	synchronizer := newSynchronizer(db)

	stats, err := synchronizer.DetectChanges(ctx, detectLimit, detectHours)
	if stats != nil {
		synchronizer.PrintSummary("Change detection", stats)
	}
	exitOnFailure(ctx, "Change detection", stats, err)
}
