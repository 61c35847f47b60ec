package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	stripesub "github.com/stripe/stripe-go/v74/subscription"
	"github.com/stripe/stripe-go/v74/webhook"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/jwt"
)

type StripeSettings struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
}

var (
	planSubs   *repository.SubscriptionRepository
	planGate   *subscription.Gate
	stripeConf StripeSettings
)

func InitSubscriptionController(subs *repository.SubscriptionRepository, gate *subscription.Gate, settings StripeSettings) {
	planSubs = subs
	planGate = gate
	stripeConf = settings
	stripe.Key = settings.SecretKey
}

type CheckoutInput struct {
	Plan string `json:"plan"`
}

func planResponse(plan subscription.PlanType, row *model.Plan) fiber.Map {
	limits := subscription.GetPlanLimits(plan)
	resp := fiber.Map{
		"plan":               plan,
		"level":              limits.Level,
		"price":              limits.Price,
		"durationDays":       limits.DurationDays,
		"description":        limits.Description,
		"maxDownloads":       subscription.Limit(limits.DailyDownloads),
		"unlimitedDownloads": limits.UnlimitedDownloads,
		"qualities":          limits.Qualities,
		"watchTimeLimit":     subscription.Limit(limits.WatchTimeMinutes),
		"isPremium":          plan.IsPremium(),
	}
	if row != nil {
		resp["id"] = row.ID
		resp["price"] = row.Price
		resp["currency"] = row.Currency
		resp["description"] = row.Description
	}
	return resp
}

// ListPlans returns the free tier followed by the purchasable catalogue
func ListPlans(c *fiber.Ctx) error {
	var rows []model.Plan
	if err := database.GetDB().Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscription plans",
		})
	}

	byName := make(map[subscription.PlanType]*model.Plan, len(rows))
	for i := range rows {
		if plan, err := subscription.ParsePlan(rows[i].Name); err == nil {
			byName[plan] = &rows[i]
		}
	}

	plans := []fiber.Map{planResponse(subscription.FreePlan, nil)}
	for _, plan := range subscription.PaidPlans {
		plans = append(plans, planResponse(plan, byName[plan]))
	}

	return c.JSON(fiber.Map{"plans": plans})
}

func GetMyPlan(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	eligibility, err := planGate.Check(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, subscription.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	latest, err := planSubs.Latest(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}

	resp := fiber.Map{
		"plan":        planResponse(eligibility.Plan, nil),
		"eligibility": eligibility,
	}
	if latest != nil && string(eligibility.Plan) == latest.Plan {
		resp["subscription"] = latest
	}
	return c.JSON(resp)
}

// Checkout opens a Stripe checkout session for an upgrade
func Checkout(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(CheckoutInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	target, err := subscription.ParsePlan(input.Plan)
	if err != nil || target == subscription.FreePlan || target == subscription.PremiumPlan {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown plan",
		})
	}

	current, err := planGate.CurrentPlan(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}
	if !subscription.CanUpgrade(current, target) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "You can only upgrade to a higher plan",
			"current": current,
		})
	}

	if stripeConf.SecretKey == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Payments are not configured",
		})
	}

	var row model.Plan
	database.GetDB().Where("name = ?", strings.ToLower(string(target))).First(&row)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(claims.UserID), 10)),
		CustomerEmail:     stripe.String(claims.Email),
		SuccessURL:        stripe.String(stripeConf.FrontendURL + "/plans/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(stripeConf.FrontendURL + "/plans"),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{lineItemFor(target, &row)},
	}
	params.AddMetadata("plan", string(target))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(claims.UserID), 10))

	s, err := session.New(params)
	if err != nil {
		log.Printf("Could not create checkout session: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"sessionId": s.ID,
		"url":       s.URL,
	})
}

// lineItemFor prefers the configured Stripe price and falls back to inline price data
func lineItemFor(plan subscription.PlanType, row *model.Plan) *stripe.CheckoutSessionLineItemParams {
	if row.StripePriceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(row.StripePriceID),
			Quantity: stripe.Int64(1),
		}
	}

	limits := subscription.GetPlanLimits(plan)
	interval := "month"
	if limits.DurationDays >= 365 {
		interval = "year"
	}
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String("inr"),
			UnitAmount: stripe.Int64(int64(limits.Price * 100)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(fmt.Sprintf("%s plan", plan)),
			},
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(interval),
			},
		},
	}
}

func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	latest, err := planSubs.Latest(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not load subscription",
		})
	}
	if latest != nil && latest.StripeSubID != "" && latest.Status == model.SubscriptionActive && stripeConf.SecretKey != "" {
		if _, err := stripesub.Cancel(latest.StripeSubID, nil); err != nil {
			log.Printf("Could not cancel Stripe subscription %s: %v", latest.StripeSubID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Could not cancel Stripe subscription",
			})
		}
	}

	sub, err := planSubs.CancelActive(c.UserContext(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNoActiveSubscription) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No active subscription found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update subscription status",
		})
	}

	if email.GlobalEmailService != nil {
		var user model.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err == nil {
			if err := email.GlobalEmailService.SendSubscriptionCancelledEmail(
				user.Email, user.DisplayName(), sub.Plan, time.Now(),
			); err != nil {
				log.Printf("Could not send subscription cancellation email: %v", err)
			}
		}
	}

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled successfully",
		"plan":    subscription.FreePlan,
	})
}

func HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), stripeConf.WebhookSecret)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	log.Printf("Processing Stripe webhook event: %s", event.Type)

	if err := applyStripeEvent(c.UserContext(), event); err != nil {
		log.Printf("Stripe event %s failed: %v", event.ID, err)
		if errors.Is(err, errBadEvent) {
			return c.Status(fiber.StatusBadRequest).Send(nil)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

var errBadEvent = errors.New("malformed stripe event")

func applyStripeEvent(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return errBadEvent
	}

	switch event.Type {
	case "checkout.session.completed":
		var s struct {
			ID                string            `json:"id"`
			ClientReferenceID string            `json:"client_reference_id"`
			Subscription      string            `json:"subscription"`
			Metadata          map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return fmt.Errorf("%w: %v", errBadEvent, err)
		}

		userID, err := strconv.ParseUint(s.ClientReferenceID, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: client reference %q", errBadEvent, s.ClientReferenceID)
		}
		plan, err := subscription.ParsePlan(s.Metadata["plan"])
		if err != nil || plan == subscription.FreePlan {
			return fmt.Errorf("%w: plan %q", errBadEvent, s.Metadata["plan"])
		}

		sub, err := planSubs.Activate(ctx, repository.Activation{
			UserID:          uint(userID),
			Plan:            plan,
			StripeSubID:     s.Subscription,
			StripeSessionID: s.ID,
			Start:           time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to activate subscription: %w", err)
		}
		log.Printf("User %d upgraded to %s", userID, plan)

		enqueue(tasks.NewSendInvoiceTask(sub.ID))

	case "customer.subscription.deleted":
		var subData struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &subData); err != nil {
			return fmt.Errorf("%w: %v", errBadEvent, err)
		}

		n, err := planSubs.CancelByStripeID(ctx, subData.ID)
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		log.Printf("Subscription %s cancelled (%d rows)", subData.ID, n)

	case "customer.subscription.updated":
		var subData struct {
			ID               string `json:"id"`
			CurrentPeriodEnd int64  `json:"current_period_end"`
		}
		if err := json.Unmarshal(event.Data.Raw, &subData); err != nil {
			return fmt.Errorf("%w: %v", errBadEvent, err)
		}
		if subData.CurrentPeriodEnd == 0 {
			return nil
		}

		if err := planSubs.UpdateEndByStripeID(ctx, subData.ID, time.Unix(subData.CurrentPeriodEnd, 0), time.Now()); err != nil {
			return fmt.Errorf("failed to update subscription expiry: %w", err)
		}
		log.Printf("Subscription %s updated", subData.ID)
	}

	return nil
}
