package entity

import "time"

// SyncState records the last snapshot mirrored for one list of one owner.
type SyncState struct {
	Owner     string     `json:"owner"`
	Kind      string     `json:"kind"`
	CID       string     `json:"cid"`
	Version   int64      `json:"version"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
