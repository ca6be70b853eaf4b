package entity

import "time"

// User is a registered wallet. Address is the lower-cased hex address and
// the contract is the source of truth for Username.
type User struct {
	Address   string    `json:"address"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio"`
	AvatarCID string    `json:"avatar_cid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
