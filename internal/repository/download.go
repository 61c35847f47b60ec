package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/subscription"
)

// reserveSQL bumps the day's counter only while it is below the limit.
// No row comes back when the limit is already reached.
const reserveSQL = `
	INSERT INTO daily_download_counters (user_id, day, count, created_at, updated_at)
	VALUES (?, ?, 1, ?, ?)
	ON CONFLICT (user_id, day) DO UPDATE
	SET count = daily_download_counters.count + 1, updated_at = excluded.updated_at
	WHERE daily_download_counters.count < ?
	RETURNING count
`

var ErrDownloadNotFound = errors.New("download not found")

// DownloadRepository handles download persistence
type DownloadRepository struct {
	db *gorm.DB
}

func NewDownloadRepository(db *gorm.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

func (r *DownloadRepository) CountDownloadsSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DownloadRecord{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// InsertDownload reserves quota and writes the record in one transaction
func (r *DownloadRepository) InsertDownload(ctx context.Context, d *subscription.Download, day string, limit int) error {
	if limit < 0 {
		limit = math.MaxInt32
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int
		res := tx.Raw(reserveSQL, d.UserID, day, d.CreatedAt, d.CreatedAt, limit).Scan(&count)
		if res.Error != nil {
			return fmt.Errorf("failed to reserve download quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return subscription.ErrQuotaExceeded
		}

		record := model.DownloadRecord{
			UserID:    d.UserID,
			VideoID:   d.VideoID,
			Quality:   string(d.Quality),
			FileSize:  d.FileSize,
			ExpiresAt: d.ExpiresAt,
		}
		record.CreatedAt = d.CreatedAt

		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}
		d.ID = record.ID
		return nil
	})
}

func (r *DownloadRepository) ListByUser(ctx context.Context, userID uint) ([]model.DownloadRecord, error) {
	var records []model.DownloadRecord
	err := r.db.WithContext(ctx).
		Preload("Video").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// FindForUser returns a record owned by userID
func (r *DownloadRepository) FindForUser(ctx context.Context, id, userID uint) (*model.DownloadRecord, error) {
	var record model.DownloadRecord
	err := r.db.WithContext(ctx).
		Preload("Video").
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDownloadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PruneCounters drops counters for days before the given one
func (r *DownloadRepository) PruneCounters(ctx context.Context, beforeDay string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("day < ?", beforeDay).
		Delete(&model.DailyDownloadCounter{})
	return res.RowsAffected, res.Error
}

// DeleteExpired soft-deletes records whose download link has lapsed
func (r *DownloadRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.DownloadRecord{})
	return res.RowsAffected, res.Error
}
