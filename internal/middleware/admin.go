package middleware

import (
	"crypto/subtle"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
)

// AdminRequired admits a request that either carries the configured
// X-Admin-Token or a valid JWT whose subject is a configured admin or whose
// role claim is "admin".
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminIDs := cfg.AdminIDs()

	verifyJWT := jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: unauthorized,
		SuccessHandler: func(c *fiber.Ctx) error {
			claims, err := mapClaims(c)
			if err != nil {
				return unauthorized(c, err)
			}
			sub, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)

			if sub == "" || !(contains(adminIDs, sub) || role == "admin") {
				return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
					Error: true, Code: "FORBIDDEN", Message: "Admin access required",
				})
			}
			c.Locals(localAdminID, sub)
			return c.Next()
		},
	})

	return func(c *fiber.Ctx) error {
		if validAdminToken(cfg.AdminToken, c.Get("X-Admin-Token")) {
			c.Locals(localAdminID, adminTokenSubject)
			return c.Next()
		}
		return verifyJWT(c)
	}
}

func validAdminToken(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
