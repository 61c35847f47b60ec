package model

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
	VideoStatusRemoved    VideoStatus = "removed"
)

type Video struct {
	gorm.Model
	UserID       uint           `json:"user_id" gorm:"index;not null"`
	Title        string         `json:"title" gorm:"not null"`
	Slug         string         `json:"slug" gorm:"index"`
	Description  string         `json:"description" gorm:"type:text"`
	FileName     string         `json:"-" gorm:"not null"`
	ObjectKey    string         `json:"-"`
	ContentType  string         `json:"content_type"`
	ThumbnailURL string         `json:"thumbnail_url"`
	IsShort      bool           `json:"is_short" gorm:"index;default:false"`
	Duration     int            `json:"duration"` // seconds
	Size         int64          `json:"size"`
	Views        int64          `json:"views" gorm:"default:0"`
	Likes        int64          `json:"likes" gorm:"default:0"`
	Dislikes     int64          `json:"dislikes" gorm:"default:0"`
	Status       VideoStatus    `json:"status" gorm:"default:'processing'"`
	Tags         datatypes.JSON `json:"tags"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// BeforeCreate fills the slug from the title
func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.Slug == "" {
		v.Slug = slug.Make(v.Title)
		if v.Slug == "" {
			v.Slug = fmt.Sprintf("video-%d", time.Now().Unix())
		}
	}
	return nil
}

func (v *Video) IsPlayable() bool {
	return v.Status == VideoStatusReady || v.Status == VideoStatusProcessing
}
