package model

import "gorm.io/gorm"

type Comment struct {
	gorm.Model
	VideoID  uint   `json:"video_id" gorm:"index;not null"`
	UserID   uint   `json:"user_id" gorm:"index;not null"`
	Body     string `json:"body" gorm:"type:text;not null"`
	Language string `json:"language"`
	City     string `json:"city"`
	Likes    int64  `json:"likes" gorm:"default:0"`
	Dislikes int64  `json:"dislikes" gorm:"default:0"`
	Hidden   bool   `json:"-" gorm:"index;default:false"`

	User  User  `json:"user" gorm:"foreignKey:UserID"`
	Video Video `json:"-" gorm:"foreignKey:VideoID"`
}
