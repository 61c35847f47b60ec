package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-"`
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Name     string `json:"name"`

	// Channel profile
	ChannelName        string `json:"channel_name"`
	ChannelSlug        string `json:"channel_slug" gorm:"index"`
	ChannelDescription string `json:"channel_description" gorm:"type:text"`
	Avatar             string `json:"avatar"`

	// Used for OTP routing and the comment location tag
	PhoneNumber string `json:"phone_number"`
	City        string `json:"city"`
	State       string `json:"state"`

	IsAdmin bool `json:"is_admin" gorm:"default:false"`

	Videos        []Video            `json:"-"`
	Subscriptions []UserSubscription `json:"-"`
}

func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":                  u.ID,
		"username":            u.Username,
		"name":                u.DisplayName(),
		"channel_name":        u.ChannelName,
		"channel_slug":        u.ChannelSlug,
		"channel_description": u.ChannelDescription,
		"avatar":              u.Avatar,
		"city":                u.City,
	}
}
