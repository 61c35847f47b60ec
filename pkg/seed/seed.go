package seed

import (
	"log"
	"strings"

	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/subscription"
)

// PriceIDs maps plans to Stripe price ids, filled from STRIPE_PRICE_<PLAN>
type PriceIDs map[subscription.PlanType]string

// SeedPlans upserts one catalogue row per purchasable plan
func SeedPlans(db *gorm.DB, prices PriceIDs) error {
	for _, planType := range subscription.PaidPlans {
		limits := subscription.GetPlanLimits(planType)
		name := strings.ToLower(string(planType))

		plan := model.Plan{
			Name:          name,
			Description:   limits.Description,
			Price:         limits.Price,
			Currency:      "inr",
			Duration:      limits.DurationDays,
			StripePriceID: prices[planType],
		}

		result := db.Where(model.Plan{Name: name}).
			Assign(model.Plan{
				Description:   plan.Description,
				Price:         plan.Price,
				Duration:      plan.Duration,
				StripePriceID: plan.StripePriceID,
			}).
			FirstOrCreate(&plan)
		if result.Error != nil {
			log.Printf("Error seeding plan %s: %v", name, result.Error)
			return result.Error
		}
	}

	log.Println("Subscription plans seeded successfully!")
	return nil
}
