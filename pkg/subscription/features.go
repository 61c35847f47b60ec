package subscription

import (
	"errors"
	"strings"
)

type PlanType string

const (
	FreePlan    PlanType = "FREE"
	BronzePlan  PlanType = "BRONZE"
	SilverPlan  PlanType = "SILVER"
	GoldPlan    PlanType = "GOLD"
	MonthlyPlan PlanType = "MONTHLY"
	YearlyPlan  PlanType = "YEARLY"
	PremiumPlan PlanType = "PREMIUM"
)

type Quality string

const (
	Quality360p Quality = "360p"
	Quality480p Quality = "480p"
	Quality720p Quality = "720p"
)

// Unlimited marks a limit without a cap
const Unlimited = -1

var ErrUnknownPlan = errors.New("unknown plan")

// AllQualities is ordered best first
var AllQualities = []Quality{Quality720p, Quality480p, Quality360p}

type PlanLimits struct {
	// Level orders plans for upgrade checks
	Level              int
	DailyDownloads     int
	UnlimitedDownloads bool
	Qualities          []Quality
	WatchTimeMinutes   int
	Price              float64
	DurationDays       int
	Description        string
}

var PlanFeatures = map[PlanType]PlanLimits{
	FreePlan: {
		Level:            0,
		DailyDownloads:   1,
		Qualities:        []Quality{Quality480p, Quality360p},
		WatchTimeMinutes: 5,
		Description:      "5 minutes of watch time, 1 download per day",
	},
	BronzePlan: {
		Level:              1,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   7,
		Price:              10,
		DurationDays:       30,
		Description:        "7 minutes of watch time, unlimited downloads",
	},
	SilverPlan: {
		Level:              2,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   10,
		Price:              50,
		DurationDays:       30,
		Description:        "10 minutes of watch time, unlimited downloads",
	},
	GoldPlan: {
		Level:              3,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   Unlimited,
		Price:              100,
		DurationDays:       30,
		Description:        "Unlimited watch time and downloads",
	},
	MonthlyPlan: {
		Level:              3,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   Unlimited,
		Price:              99,
		DurationDays:       30,
		Description:        "Premium for one month",
	},
	YearlyPlan: {
		Level:              4,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   Unlimited,
		Price:              999,
		DurationDays:       365,
		Description:        "Premium for one year",
	},
	PremiumPlan: {
		Level:              3,
		UnlimitedDownloads: true,
		DailyDownloads:     Unlimited,
		Qualities:          AllQualities,
		WatchTimeMinutes:   Unlimited,
		DurationDays:       30,
		Description:        "Legacy premium",
	},
}

// PaidPlans lists the plans that can be bought, cheapest first
var PaidPlans = []PlanType{BronzePlan, SilverPlan, GoldPlan, MonthlyPlan, YearlyPlan}

// ParsePlan is case-insensitive and rejects names outside the enumeration
func ParsePlan(name string) (PlanType, error) {
	plan := PlanType(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := PlanFeatures[plan]; !ok {
		return "", ErrUnknownPlan
	}
	return plan, nil
}

func GetPlanLimits(plan PlanType) PlanLimits {
	if limits, ok := PlanFeatures[plan]; ok {
		return limits
	}
	return PlanFeatures[FreePlan]
}

func (p PlanType) IsPremium() bool {
	return GetPlanLimits(p).UnlimitedDownloads
}

func (p PlanType) AllowsQuality(q Quality) bool {
	for _, allowed := range GetPlanLimits(p).Qualities {
		if allowed == q {
			return true
		}
	}
	return false
}

// CanUpgrade reports whether moving from one plan to another is an upgrade
func CanUpgrade(from, to PlanType) bool {
	if to == FreePlan {
		return false
	}
	return GetPlanLimits(to).Level > GetPlanLimits(from).Level
}

func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllQualities {
		if q == known {
			return q, nil
		}
	}
	return "", ErrInvalidQuality
}
