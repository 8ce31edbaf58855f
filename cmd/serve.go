package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jjenkins/billpulse/internal/consensus"
	"github.com/jjenkins/billpulse/internal/district"
	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/handlers"
	"github.com/jjenkins/billpulse/internal/locality"
	"github.com/jjenkins/billpulse/internal/stance"
	"github.com/jjenkins/billpulse/internal/store"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the BillPulse JSON API server",
	Long:  `Start the HTTP API serving bills, stances, consensus and follows.`,
	Run: func(cmd *cobra.Command, args []string) {
		// PORT from the environment wins over the flag default.
		if !cmd.Flags().Changed("port") {
			port = cfg.Server.Port
		}

		ctx, cancel := signalContext()
		defer cancel()

		db := openDB(ctx)
		defer db.Close()

		billStore := store.NewBillStore(db)
		userStore := store.NewUserStore(db)
		stanceStore := store.NewStanceStore(db)
		followerStore := store.NewFollowerStore(db)

		var cache district.Cache
		if cfg.Redis.URL != "" {
			redisCache, err := district.NewRedisCache(cfg.Redis.URL)
			if err != nil {
				log.Fatal("Failed to connect to redis", err, nil)
			}
			defer redisCache.Close()
			cache = redisCache
		} else {
			log.Warn("REDIS_URL not set, district lookups will not be cached", nil)
		}

		resolver := district.NewResolver(
			district.NewCensusClient(cfg.District.GeocoderURL, cfg.District.Timeout),
			cache,
			cfg.District.CacheTTL,
			geo.USStates,
			log,
		)

		app := handlers.NewApp(handlers.Handlers{
			Health:  handlers.NewHealthHandler(db),
			Bills:   handlers.NewBillHandler(billStore, consensus.NewEngine(stanceStore, geo.USStates)),
			Stances: handlers.NewStanceHandler(stance.NewService(stanceStore, userStore, billStore, log)),
			Follows: handlers.NewFollowHandler(followerStore, billStore),
			Users:   handlers.NewUserHandler(locality.NewService(userStore, billStore), userStore, resolver),
		}, log)

		go func() {
			<-ctx.Done()
			if err := app.Shutdown(); err != nil {
				log.Error("Server shutdown failed", err, nil)
			}
		}()

		log.Info("Starting server", map[string]interface{}{"port": port, "env": cfg.Server.Env})
		if err := app.Listen(":" + port); err != nil {
			log.Fatal("Failed to start server", err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
