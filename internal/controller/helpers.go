package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/pkg/utils/jwt"
)

// claimsFrom returns the authenticated caller, nil for anonymous requests
func claimsFrom(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals("user").(*jwt.Claims)
	return claims
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func badID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid ID",
	})
}

type page struct {
	Page  int
	Limit int
}

func (p page) Offset() int { return (p.Page - 1) * p.Limit }

func pagination(c *fiber.Ctx) page {
	p := page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", 20)}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 100 {
		p.Limit = 20
	}
	return p
}
