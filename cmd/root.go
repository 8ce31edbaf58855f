package cmd

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/config"
	"github.com/jjenkins/billpulse/internal/congress"
	"github.com/jjenkins/billpulse/internal/logger"
	"github.com/jjenkins/billpulse/internal/service"
	"github.com/jjenkins/billpulse/internal/store"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "billpulse",
	Short: "Track federal legislation and constituent consensus",
	Long: `billpulse keeps a local copy of bills from the congress.gov API and
records where constituents stand on them, aggregated by state and
congressional district.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(cfg.Server.Env)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Info("Received interrupt signal, shutting down...", nil)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func openDB(ctx context.Context) *sql.DB {
	log.Info("Connecting to database...", nil)
	db, err := store.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", err, nil)
	}
	return db
}

// newSynchronizer wires the congress.gov client to the bill and follower stores.
func newSynchronizer(db *sql.DB) *service.Synchronizer {
	if err := cfg.RequireCongressAPI(); err != nil {
		log.Fatal("Missing configuration", err, nil)
	}

	client := congress.NewClient(cfg.Congress, log)
	return service.NewSynchronizer(client, store.NewBillStore(db), store.NewFollowerStore(db), log)
}

// exitOnFailure ends a sync command, exiting 1 when it was canceled or any
// bill failed.
func exitOnFailure(ctx context.Context, operation string, stats *service.SyncStats, err error) {
	if err != nil {
		if ctx.Err() != nil {
			log.Warn(operation+" cancelled", nil)
			if stats != nil {
				log.Info(operation+" partial results", map[string]interface{}{"synced": stats.Synced(), "failed": stats.Failed})
			}
			os.Exit(1)
		}
		log.Fatal(operation+" failed", err, nil)
	}
	if stats != nil && stats.Failed > 0 {
		os.Exit(1)
	}
}
