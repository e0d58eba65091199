package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/marketplace-moderation/internal/dto"
)

const (
	localUser    = "user"
	localAdminID = "admin_id"

	adminTokenSubject = "admin-token"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: unauthorized,
	})
}

func unauthorized(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Code:    "UNAUTHENTICATED",
		Message: "Unauthorized: invalid or expired token",
	})
}

// Subject returns the "sub" claim of the verified token.
func Subject(c *fiber.Ctx) (string, error) {
	claims, err := mapClaims(c)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}

// AdminID returns who is acting on an admin route. Only valid behind
// AdminRequired.
func AdminID(c *fiber.Ctx) string {
	id, _ := c.Locals(localAdminID).(string)
	return id
}

func mapClaims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(localUser).(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
