package persistent

import (
	"context"
	"fmt"

	"blockconnect/pkg/contract"
)

// RelationRepository reads and writes follow relations on the contract.
// Lists are returned as addresses.
type RelationRepository interface {
	Address(ctx context.Context, username string) (string, error)
	Username(ctx context.Context, address string) (string, error)
	Request(ctx context.Context, from, to string) error
	Accept(ctx context.Context, user, from string) error
	Followers(ctx context.Context, address string) ([]string, error)
	Following(ctx context.Context, address string) ([]string, error)
	Pending(ctx context.Context, address string) ([]string, error)
}

type relationRepository struct {
	registry contract.Registry
}

func NewRelationRepository(registry contract.Registry) RelationRepository {
	return &relationRepository{registry: registry}
}

func (r *relationRepository) Address(ctx context.Context, username string) (string, error) {
	return r.registry.GetAddressByUsername(ctx, username)
}

func (r *relationRepository) Username(ctx context.Context, address string) (string, error) {
	return r.registry.GetUsername(ctx, address)
}

func (r *relationRepository) Request(ctx context.Context, from, to string) error {
	if err := r.registry.SendFollowRequest(ctx, from, to); err != nil {
		return fmt.Errorf("contract send follow request: %w", err)
	}
	return nil
}

func (r *relationRepository) Accept(ctx context.Context, user, from string) error {
	if err := r.registry.AcceptFollowRequest(ctx, user, from); err != nil {
		return fmt.Errorf("contract accept follow request: %w", err)
	}
	return nil
}

func (r *relationRepository) Followers(ctx context.Context, address string) ([]string, error) {
	return r.registry.GetFollowers(ctx, address)
}

func (r *relationRepository) Following(ctx context.Context, address string) ([]string, error) {
	return r.registry.GetFollowing(ctx, address)
}

func (r *relationRepository) Pending(ctx context.Context, address string) ([]string, error) {
	return r.registry.GetPendingRequests(ctx, address)
}
