package model

import (
	"time"

	"gorm.io/gorm"
)

// DownloadRecord is written once per successful download and never updated
type DownloadRecord struct {
	gorm.Model
	UserID    uint      `json:"user_id" gorm:"index:idx_download_user_created;not null"`
	VideoID   uint      `json:"video_id" gorm:"index;not null"`
	Quality   string    `json:"quality" gorm:"size:10;not null"`
	FileSize  int64     `json:"file_size"`
	ExpiresAt time.Time `json:"expires_at"`

	Video Video `json:"video,omitempty" gorm:"foreignKey:VideoID"`
}

// DailyDownloadCounter holds the per-day reservation count used for the
// conditional increment. Day is formatted as 2006-01-02 in server local time.
type DailyDownloadCounter struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_counter_user_day;not null"`
	Day       string `gorm:"uniqueIndex:idx_counter_user_day;size:10;not null"`
	Count     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
