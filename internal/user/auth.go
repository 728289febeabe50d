package user

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

// RequireAuth rejects requests without a valid bearer token and stores the
// parsed *jwt.Token under Locals("user").
func RequireAuth(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// OptionalAuth validates a bearer token when one is sent and lets anonymous
// requests through untouched.
func OptionalAuth(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		Filter: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderAuthorization) == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// GetUserIDFromCtx reads the user_id claim placed by the JWT middleware.
func GetUserIDFromCtx(c *fiber.Ctx) (string, error) {
	u := c.Locals("user")
	if u == nil {
		return "", fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v == "" {
			return "", fiber.ErrUnauthorized
		}
		return v, nil
	case float64:
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", fiber.ErrUnauthorized
	}
}
