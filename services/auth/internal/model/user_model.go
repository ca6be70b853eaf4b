package model

import (
	"time"

	"gorm.io/gorm"
)

type UserModel struct {
	Address   string         `gorm:"type:varchar(42);primary_key" json:"address"`
	Username  string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Bio       string         `gorm:"type:text;not null;default:''" json:"bio"`
	AvatarCID string         `gorm:"column:avatar_cid;type:varchar(128);not null;default:''" json:"avatar_cid"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (UserModel) TableName() string {
	return "users"
}
