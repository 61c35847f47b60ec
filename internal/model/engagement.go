package model

import "time"

type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

type TargetType string

const (
	TargetVideo   TargetType = "video"
	TargetComment TargetType = "comment"
)

// Reaction is a like or dislike, one per user and target
type Reaction struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	UserID     uint         `json:"user_id" gorm:"uniqueIndex:idx_reaction_target;not null"`
	TargetType TargetType   `json:"target_type" gorm:"uniqueIndex:idx_reaction_target;size:20;not null"`
	TargetID   uint         `json:"target_id" gorm:"uniqueIndex:idx_reaction_target;not null"`
	Kind       ReactionKind `json:"kind" gorm:"size:10;not null"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type WatchHistory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_history_user_video;not null"`
	VideoID   uint      `json:"video_id" gorm:"uniqueIndex:idx_history_user_video;not null"`
	WatchedAt time.Time `json:"watched_at" gorm:"index"`

	Video Video `json:"video" gorm:"foreignKey:VideoID"`
}

func (WatchHistory) TableName() string {
	return "watch_history"
}

type WatchLater struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_watch_later_user_video;not null"`
	VideoID   uint      `json:"video_id" gorm:"uniqueIndex:idx_watch_later_user_video;not null"`
	CreatedAt time.Time `json:"created_at"`

	Video Video `json:"video" gorm:"foreignKey:VideoID"`
}

func (WatchLater) TableName() string {
	return "watch_later"
}

// ChannelSubscription links a viewer to a channel (the channel owner user)
type ChannelSubscription struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SubscriberID uint      `json:"subscriber_id" gorm:"uniqueIndex:idx_channel_subscriber;not null"`
	ChannelID    uint      `json:"channel_id" gorm:"uniqueIndex:idx_channel_subscriber;index;not null"`
	CreatedAt    time.Time `json:"created_at"`

	Channel User `json:"channel" gorm:"foreignKey:ChannelID"`
}
