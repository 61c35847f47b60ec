package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Plan is the purchasable catalogue row. Capabilities live in pkg/subscription.
type Plan struct {
	gorm.Model
	Name          string  `json:"name" gorm:"uniqueIndex;not null"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" gorm:"not null"`
	Currency      string  `json:"currency" gorm:"default:'inr'"`
	Duration      int     `json:"duration" gorm:"not null"` // days
	StripePriceID string  `json:"stripe_price_id"`
}

type UserSubscription struct {
	gorm.Model
	UserID          uint       `json:"user_id" gorm:"index;not null"`
	Plan            string     `json:"plan" gorm:"not null"`
	Status          string     `json:"status" gorm:"index;default:'active'"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	WatchTimeLimit  int        `json:"watch_time_limit"` // minutes, -1 unlimited
	StripeSubID     string     `json:"stripe_subscription_id" gorm:"index"`
	StripeSessionID string     `json:"stripe_session_id" gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
