package model

import "time"

type SyncStateModel struct {
	Owner     string     `gorm:"type:varchar(64);primaryKey" json:"owner"`
	Kind      string     `gorm:"type:varchar(32);primaryKey" json:"kind"`
	CID       string     `gorm:"column:cid;type:varchar(128);not null;default:''" json:"cid"`
	Version   int64      `gorm:"not null;default:0" json:"version"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	LastError string     `gorm:"type:text;not null;default:''" json:"last_error"`
	SyncedAt  *time.Time `json:"synced_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (SyncStateModel) TableName() string {
	return "sync_states"
}
