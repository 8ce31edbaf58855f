package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/service"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the recurring sync jobs until interrupted",
	Long: `Schedule runs the background jobs in one process:

  sync latest bills     every 3 hours   (current Congress, 100 bills)
  detect changes        every 6 hours   (100 bills, not synced in 6h)
  resync stale bills    daily           (100 bills, not synced in 72h)
  record metrics        daily
  full sync             weekly          (batches of 250, 5s apart)`,
	Run: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	db := openDB(ctx)
	defer db.Close()

	synchronizer := newSynchronizer(db)
	metrics := service.NewMetricsService(db)

	syncJob := func(name string, run func(ctx context.Context) (*service.SyncStats, error)) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			stats, err := run(ctx)
			if stats != nil {
				synchronizer.PrintSummary(name, stats)
			}
			return err
		}
	}

	scheduler := service.NewScheduler(log,
		service.Job{
			Name:    "sync-latest",
			Every:   3 * time.Hour,
			Timeout: 5 * time.Minute,
			Run: syncJob("Sync", func(ctx context.Context) (*service.SyncStats, error) {
				return synchronizer.SyncBatch(ctx, model.CurrentCongress(time.Now()), "", 100, 0)
			}),
		},
		service.Job{
			Name:    "detect-changes",
			Every:   6 * time.Hour,
			Timeout: 3 * time.Minute,
			Run: syncJob("Change detection", func(ctx context.Context) (*service.SyncStats, error) {
				return synchronizer.DetectChanges(ctx, 100, 6)
			}),
		},
		service.Job{
			Name:    "resync-stale",
			Every:   24 * time.Hour,
			Timeout: 30 * time.Minute,
			Run: syncJob("Stale resync", func(ctx context.Context) (*service.SyncStats, error) {
				return synchronizer.ResyncStale(ctx, 100, 72)
			}),
		},
		service.Job{
			Name:    "metrics",
			Every:   24 * time.Hour,
			Timeout: time.Minute,
			Run: func(ctx context.Context) error {
				_, err := metrics.CalculateAndStore(ctx)
				return err
			},
		},
		service.Job{
			Name:    "sync-all",
			Every:   7 * 24 * time.Hour,
			Timeout: 12 * time.Hour,
			Run: syncJob("Full sync", func(ctx context.Context) (*service.SyncStats, error) {
				return synchronizer.SyncAll(ctx, model.CurrentCongress(time.Now()), 250, 5*time.Second)
			}),
		},
	)

	log.Info("Scheduler started", nil)
	if err := scheduler.Run(ctx); err != nil {
		log.Fatal("Scheduler stopped", err, nil)
	}
	log.Info("Scheduler stopped", nil)
}
