package model

import (
	"time"
)

// swagger:model User
type User struct {
	BaseModel
	Email         string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password      string    `gorm:"size:100;not null" json:"-"`
	FullName      string    `gorm:"size:100;not null" json:"fullName"`
	AvatarURL     string    `gorm:"size:255" json:"avatarUrl"`
	StatusMessage string    `gorm:"size:255" json:"statusMessage"`
	UserCode      uint      `gorm:"uniqueIndex;not null" json:"userCode"` // 6位数字查找码
	LastSeen      time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// UserSettings 用户设置表，每个用户一行，直写
type UserSettings struct {
	UserID               uint      `gorm:"primaryKey" json:"userId"`
	Theme                string    `gorm:"size:20;default:'light'" json:"theme"`
	NotificationsEnabled bool      `gorm:"default:true" json:"notificationsEnabled"`
	ReadReceiptsEnabled  bool      `gorm:"default:true" json:"readReceiptsEnabled"`
	OnlineStatusEnabled  bool      `gorm:"default:true" json:"onlineStatusEnabled"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
