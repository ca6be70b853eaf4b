// Package contract is the client side of the BlockConnect registry contract,
// which holds identities, posts, likes, follow relationships and the content
// pointers of each profile.
package contract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

// Registry lists the contract methods used by the services. Addresses are
// lower-cased 0x-prefixed hex strings.
type Registry interface {
	Register(ctx context.Context, address, username string) error
	Login(ctx context.Context, address string) (bool, error)
	GetUsernames(ctx context.Context) ([]string, error)
	GetAddressByUsername(ctx context.Context, username string) (string, error)
	GetUsername(ctx context.Context, address string) (string, error)

	CreatePost(ctx context.Context, author, postID, contentHash string) error
	GetPostsByUser(ctx context.Context, address string) ([]string, error)
	GetPost(ctx context.Context, postID string) (*Post, error)
	LikePost(ctx context.Context, address, postID string) error
	GetPostLikes(ctx context.Context, postID string) ([]string, error)

	SendFollowRequest(ctx context.Context, from, to string) error
	AcceptFollowRequest(ctx context.Context, user, from string) error
	GetPendingRequests(ctx context.Context, address string) ([]string, error)
	GetFollowers(ctx context.Context, address string) ([]string, error)
	GetFollowing(ctx context.Context, address string) ([]string, error)

	UpdateMessagesHash(ctx context.Context, address, hash string) error
	GetMessagesHash(ctx context.Context, address string) (string, error)
	UpdateProfile(ctx context.Context, address string, profile Profile) error
	GetProfile(ctx context.Context, address string) (*Profile, error)
}

type Post struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	Likes       int64     `json:"likes"`
}

// Profile is the per-address record. NotificationsHash points at the mirrored
// notifications snapshot.
type Profile struct {
	Username          string `json:"username"`
	Bio               string `json:"bio"`
	AvatarHash        string `json:"avatar_hash"`
	NotificationsHash string `json:"notifications_hash"`
}

// NormalizeAddress validates a hex address and lower-cases it.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("address %q: %w", address, apperr.ErrInvalidInput)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// New builds the registry selected by cfg.ContractMode.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Registry, error) {
	switch cfg.ContractMode {
	case "eth":
		return NewEthRegistry(ctx, cfg, log)
	case "memory":
		log.Warn("[CONTRACT] Using in-memory registry; state is lost on restart")
		return NewMemoryRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown contract mode: %s", cfg.ContractMode)
	}
}
