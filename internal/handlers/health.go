package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthCheckTimeout = 2 * time.Second

// Pinger checks a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health handles GET /health. It reports 503 when the database is down.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		if log := GetLogger(c); log != nil {
			log.Error("Database health check failed", err, map[string]interface{}{
				"timeout": healthCheckTimeout.String(),
			})
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
		})
	}

	return c.JSON(HealthResponse{
		Status:   "healthy",
		Database: "connected",
	})
}
