package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/config"
)

// CORS serves the admin dashboard. Credentials are allowed only for an
// explicit origin list.
func CORS(cfg *config.Config) fiber.Handler {
	origins := strings.TrimSpace(cfg.CORSOrigins)
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Admin-Token, X-Request-ID",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "X-Request-ID, Retry-After",
		AllowCredentials: origins != "*" && origins != "",
		MaxAge:           600,
	})
}
