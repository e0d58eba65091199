package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
)

type HealthHandler struct {
	pingDB   func() error
	pingLock func(ctx context.Context) error
}

// NewHealthHandler takes the dependency checks. pingLock is nil when locks
// are held in process.
func NewHealthHandler(pingDB func() error, pingLock func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{pingDB: pingDB, pingLock: pingLock}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
		Lock:      "in-process",
	}

	if err := h.pingDB(); err != nil {
		resp.Status = "degraded"
		resp.DB = "unhealthy: " + err.Error()
	}

	if h.pingLock != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		resp.Lock = "redis ok"
		if err := h.pingLock(ctx); err != nil {
			resp.Status = "degraded"
			resp.Lock = "redis unhealthy: " + err.Error()
		}
	}

	status := fiber.StatusOK
	if resp.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}
