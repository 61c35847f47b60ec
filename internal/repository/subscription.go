package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/subscription"
)

var ErrNoActiveSubscription = errors.New("no active subscription")

// SubscriptionRepository handles user plan subscriptions
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Latest returns the newest subscription row for the user, nil when none
func (r *SubscriptionRepository) Latest(ctx context.Context, userID uint) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) CurrentSubscription(ctx context.Context, userID uint) (*subscription.SubscriptionState, error) {
	sub, err := r.Latest(ctx, userID)
	if err != nil || sub == nil {
		return nil, err
	}
	return &subscription.SubscriptionState{
		Plan:           sub.Plan,
		Status:         sub.Status,
		EndDate:        sub.EndDate,
		WatchTimeLimit: sub.WatchTimeLimit,
	}, nil
}

// CreateFree writes the implicit free row at signup
func (r *SubscriptionRepository) CreateFree(ctx context.Context, userID uint, now time.Time) error {
	limits := subscription.GetPlanLimits(subscription.FreePlan)
	return r.db.WithContext(ctx).Create(&model.UserSubscription{
		UserID:         userID,
		Plan:           string(subscription.FreePlan),
		Status:         model.SubscriptionActive,
		StartDate:      now,
		WatchTimeLimit: limits.WatchTimeMinutes,
	}).Error
}

type Activation struct {
	UserID          uint
	Plan            subscription.PlanType
	StripeSubID     string
	StripeSessionID string
	Start           time.Time
}

// Activate supersedes any active row with a new one for the plan. A repeated
// activation for the same checkout session returns the existing row.
func (r *SubscriptionRepository) Activate(ctx context.Context, a Activation) (*model.UserSubscription, error) {
	var created model.UserSubscription

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.StripeSessionID != "" {
			err := tx.Where("stripe_session_id = ?", a.StripeSessionID).First(&created).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if err := tx.Model(&model.UserSubscription{}).
			Where("user_id = ? AND status = ?", a.UserID, model.SubscriptionActive).
			Update("status", model.SubscriptionCancelled).Error; err != nil {
			return err
		}

		limits := subscription.GetPlanLimits(a.Plan)
		created = model.UserSubscription{
			UserID:          a.UserID,
			Plan:            string(a.Plan),
			Status:          model.SubscriptionActive,
			StartDate:       a.Start,
			WatchTimeLimit:  limits.WatchTimeMinutes,
			StripeSubID:     a.StripeSubID,
			StripeSessionID: a.StripeSessionID,
		}
		if limits.DurationDays > 0 {
			end := a.Start.AddDate(0, 0, limits.DurationDays)
			created.EndDate = &end
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CancelActive cancels the user's active paid row and returns it
func (r *SubscriptionRepository) CancelActive(ctx context.Context, userID uint) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND plan <> ?", userID, model.SubscriptionActive, string(subscription.FreePlan)).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&sub).Update("status", model.SubscriptionCancelled).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) CancelByStripeID(ctx context.Context, stripeSubID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("stripe_sub_id = ? AND status = ?", stripeSubID, model.SubscriptionActive).
		Update("status", model.SubscriptionCancelled)
	return res.RowsAffected, res.Error
}

// UpdateEndByStripeID moves the period end after a renewal. A row the expiry
// cron already closed is reopened when the new end is still ahead; cancelled
// rows stay cancelled.
func (r *SubscriptionRepository) UpdateEndByStripeID(ctx context.Context, stripeSubID string, end, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UserSubscription{}).
			Where("stripe_sub_id = ?", stripeSubID).
			Update("end_date", end).Error; err != nil {
			return err
		}
		if !end.After(now) {
			return nil
		}
		return tx.Model(&model.UserSubscription{}).
			Where("stripe_sub_id = ? AND status IN ?", stripeSubID,
				[]string{model.SubscriptionActive, model.SubscriptionExpired}).
			Update("status", model.SubscriptionActive).Error
	})
}

// ExpirePastEnd marks active rows whose end date has passed as expired
func (r *SubscriptionRepository) ExpirePastEnd(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.UserSubscription{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", model.SubscriptionActive, now).
		Update("status", model.SubscriptionExpired)
	return res.RowsAffected, res.Error
}

// EndingBetween returns active rows ending in [from, to)
func (r *SubscriptionRepository) EndingBetween(ctx context.Context, from, to time.Time) ([]model.UserSubscription, error) {
	var subs []model.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ? AND end_date >= ? AND end_date < ?", model.SubscriptionActive, from, to).
		Find(&subs).Error
	return subs, err
}
