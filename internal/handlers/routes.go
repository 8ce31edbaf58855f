package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/billpulse/internal/logger"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Health  *HealthHandler
	Bills   *BillHandler
	Stances *StanceHandler
	Follows *FollowHandler
	Users   *UserHandler
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(h Handlers, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "BillPulse",
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(RequestID())
	app.Use(RequestLogger(log))
	app.Use(Recovery())

	app.Get("/health", h.Health.Health)

	bills := app.Group("/bills")
	bills.Get("/", h.Bills.List)
	bills.Get("/:id", h.Bills.Get)
	bills.Get("/:id/consensus", h.Bills.Consensus)
	bills.Get("/:id/geography", h.Bills.Geography)

	bills.Get("/:id/stance/history", RequireUser(), h.Stances.History)
	bills.Get("/:id/stance", RequireUser(), h.Stances.Current)
	bills.Post("/:id/stance", RequireUser(), h.Stances.Submit)
	bills.Delete("/:id/stance", RequireUser(), h.Stances.Remove)

	bills.Post("/:id/follow", RequireUser(), h.Follows.Follow)
	bills.Put("/:id/follow", RequireUser(), h.Follows.Update)
	bills.Delete("/:id/follow", RequireUser(), h.Follows.Unfollow)

	users := app.Group("/users/:id", RequireUser())
	users.Get("/local-bills", h.Users.LocalBills)
	users.Put("/location", h.Users.UpdateLocation)

	return app
}
