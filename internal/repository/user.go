package repository

import (
	"context"

	"gorm.io/gorm"

	"vidshare_backend/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) UserExists(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// GateStore is the persistence behind subscription.Gate
type GateStore struct {
	*UserRepository
	*SubscriptionRepository
	*DownloadRepository
}

func NewGateStore(db *gorm.DB) *GateStore {
	return &GateStore{
		UserRepository:         NewUserRepository(db),
		SubscriptionRepository: NewSubscriptionRepository(db),
		DownloadRepository:     NewDownloadRepository(db),
	}
}
