package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"vidshare_backend/internal/repository"
)

type ExpiryMailer interface {
	SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error
}

// WarningDays are the days-before-expiry on which a reminder is sent
var WarningDays = []int{7, 3}

// InitSubscriptionExpiryCron sends expiry reminders every morning and
// expires lapsed subscriptions every hour. mailer may be nil.
func InitSubscriptionExpiryCron(subs *repository.SubscriptionRepository, mailer ExpiryMailer) *cron.Cron {
	c := cron.New()

	if mailer != nil {
		if _, err := c.AddFunc("0 9 * * *", func() {
			checkExpiringSubscriptions(context.Background(), subs, mailer, time.Now())
		}); err != nil {
			log.Printf("Could not initialize subscription expiry warning cron: %v", err)
		}
	}

	if _, err := c.AddFunc("@hourly", func() {
		expireSubscriptions(context.Background(), subs, time.Now())
	}); err != nil {
		log.Printf("Could not initialize subscription expiry cron: %v", err)
	}

	c.Start()
	return c
}

func checkExpiringSubscriptions(ctx context.Context, subs *repository.SubscriptionRepository, mailer ExpiryMailer, now time.Time) int {
	log.Println("Checking for expiring subscriptions...")

	sent := 0
	for _, days := range WarningDays {
		from := startOfDay(now.AddDate(0, 0, days))
		expiring, err := subs.EndingBetween(ctx, from, from.AddDate(0, 0, 1))
		if err != nil {
			log.Printf("Error fetching expiring subscriptions: %v", err)
			continue
		}

		log.Printf("Found %d subscriptions expiring in %d days", len(expiring), days)

		for _, sub := range expiring {
			err := mailer.SendSubscriptionExpiryWarning(
				sub.User.Email,
				sub.User.DisplayName(),
				sub.Plan,
				*sub.EndDate,
				days,
			)
			if err != nil {
				log.Printf("Error sending expiry warning to %s: %v", sub.User.Email, err)
				continue
			}
			sent++
		}
	}
	return sent
}

func expireSubscriptions(ctx context.Context, subs *repository.SubscriptionRepository, now time.Time) {
	n, err := subs.ExpirePastEnd(ctx, now)
	if err != nil {
		log.Printf("Error expiring subscriptions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Expired %d subscriptions", n)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
