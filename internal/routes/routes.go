package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	gatherer prometheus.Gatherer,
	healthHandler *handlers.HealthHandler,
	moderationHandler *handlers.ModerationHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Get("/health", healthHandler.Check)

	// Report submission (any signed-in user)
	api.Post("/reports", middleware.JWTProtected(cfg), moderationHandler.CreateReport)

	// Admin moderation panel, rate limited per admin
	admin := api.Group("/admin/reports", middleware.AdminRequired(cfg))
	admin.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := middleware.AdminID(c); id != "" {
				return id
			}
			return c.IP()
		},
	}))
	admin.Get("/", moderationHandler.ListReports)
	admin.Post("/chat-import", moderationHandler.ImportChatReport)
	admin.Get("/:id", moderationHandler.GetReport)
	admin.Delete("/:id", moderationHandler.DeleteReport)
	admin.Post("/:id/review", moderationHandler.StartReview)
	admin.Post("/:id/resolve", moderationHandler.ResolveReport)
	admin.Post("/:id/reject", moderationHandler.RejectReport)
	admin.Get("/:id/deliveries", moderationHandler.ListDeliveries)
}
