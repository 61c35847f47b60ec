package middleware

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/pkg/subscription"
)

const WatchTimeHeader = "X-Watch-Time-Limit"

// ResolvePlan stores the caller's current plan under c.Locals("plan").
// Anonymous callers get the free plan.
func ResolvePlan(gate *subscription.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		plan := subscription.FreePlan
		if claims, ok := CurrentUser(c); ok {
			p, err := gate.CurrentPlan(c.UserContext(), claims.UserID)
			if err != nil {
				log.Printf("Could not resolve plan for user %d: %v", claims.UserID, err)
			} else {
				plan = p
			}
		}

		c.Locals("plan", plan)
		return c.Next()
	}
}

// WatchTimeLimit advertises the plan's per-video watch limit in minutes,
// -1 meaning unlimited. Must run after ResolvePlan.
func WatchTimeLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(WatchTimeHeader, strconv.Itoa(subscription.GetPlanLimits(PlanFrom(c)).WatchTimeMinutes))
		return c.Next()
	}
}

// RequireQuality rejects ?quality values the plan does not include
func RequireQuality() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("quality")
		if raw == "" {
			return c.Next()
		}

		q, err := subscription.ParseQuality(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported quality",
			})
		}

		plan := PlanFrom(c)
		if !plan.AllowsQuality(q) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":        "This quality requires a premium plan",
				"needsPremium": true,
				"plan":         plan,
			})
		}
		return c.Next()
	}
}

func PlanFrom(c *fiber.Ctx) subscription.PlanType {
	if plan, ok := c.Locals("plan").(subscription.PlanType); ok {
		return plan
	}
	return subscription.FreePlan
}
