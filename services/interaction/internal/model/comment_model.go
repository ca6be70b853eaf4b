package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentModel struct {
	ID        string         `gorm:"type:uuid;primary_key" json:"id"`
	PostID    string         `gorm:"type:varchar(64);index;not null" json:"post_id"`
	Author    string         `gorm:"type:varchar(64);not null" json:"author"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CID       string         `gorm:"column:cid;type:varchar(128)" json:"cid"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CommentModel) TableName() string {
	return "comments"
}

func (c *CommentModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
