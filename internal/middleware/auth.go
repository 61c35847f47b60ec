package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/pkg/utils/jwt"
)

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the claims under c.Locals("user").
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization token",
			})
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and never rejects
func OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if claims, err := jwt.ValidateToken(token); err == nil {
				c.Locals("user", claims)
			}
		}
		return c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*jwt.Claims)
		if !ok || !claims.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the claims set by AuthMiddleware or OptionalAuth
func CurrentUser(c *fiber.Ctx) (*jwt.Claims, bool) {
	claims, ok := c.Locals("user").(*jwt.Claims)
	return claims, ok && claims != nil
}
