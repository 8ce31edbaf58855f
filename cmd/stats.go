package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/service"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Calculate and record system-wide participation metrics",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		db := openDB(ctx)
		defer db.Close()

		metrics, err := service.NewMetricsService(db).CalculateAndStore(ctx)
		if err != nil {
			log.Fatal("Failed to calculate metrics", err, nil)
		}
		printMetrics(metrics)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printMetrics(m *service.SystemMetrics) {
	fmt.Println("=== System Metrics ===")
	fmt.Printf("Total bills:        %d\n", m.TotalBills)
	fmt.Printf("Active bills:       %d\n", m.ActiveBills)
	fmt.Printf("Active stances:     %d\n", m.ActiveStances)
	fmt.Printf("Participants:       %d\n", m.Participants)
	fmt.Printf("Districts:          %d\n", m.DistrictsRepresented)
	fmt.Printf("Followers:          %d\n", m.Followers)
	if m.MostDiscussedBill != "" {
		fmt.Printf("Most discussed:     %s (%d stances)\n", m.MostDiscussedBill, m.MostDiscussedStances)
	}
	if m.LastSyncedAt.Valid {
		fmt.Printf("Last sync:          %s\n", m.LastSyncedAt.Time.Format(time.RFC3339))
	}
}
