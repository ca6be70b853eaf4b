package mirror

import (
	"context"
	"fmt"

	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
)

// Pointers reads and writes the contract fields that reference mirrored
// snapshots: the messages hash and the profile's notifications hash.
type Pointers struct {
	registry contract.Registry
}

func NewPointers(registry contract.Registry) *Pointers {
	return &Pointers{registry: registry}
}

// Address resolves the wallet address of a username.
func (p *Pointers) Address(ctx context.Context, username string) (string, error) {
	return p.registry.GetAddressByUsername(ctx, username)
}

// Get returns the snapshot reference for owner, or "" when nothing has been
// mirrored yet.
func (p *Pointers) Get(ctx context.Context, kind Kind, owner string) (string, error) {
	address, err := p.Address(ctx, owner)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindMessages:
		return p.registry.GetMessagesHash(ctx, address)
	case KindNotifications:
		profile, err := p.registry.GetProfile(ctx, address)
		if err != nil {
			return "", err
		}
		return profile.NotificationsHash, nil
	default:
		return "", fmt.Errorf("unknown mirror kind %q", kind)
	}
}

// Set points owner's kind at ref. The rest of the profile is preserved.
func (p *Pointers) Set(ctx context.Context, kind Kind, owner, ref string) error {
	address, err := p.Address(ctx, owner)
	if err != nil {
		return err
	}
	switch kind {
	case KindMessages:
		return p.registry.UpdateMessagesHash(ctx, address, ref)
	case KindNotifications:
		_, err := contract.EditProfile(ctx, p.registry, address, func(profile *contract.Profile) {
			profile.NotificationsHash = ref
		})
		return err
	default:
		return fmt.Errorf("unknown mirror kind %q", kind)
	}
}

// Load fetches owner's mirrored snapshot of kind. A missing pointer yields an
// empty snapshot.
func Load[T any](ctx context.Context, pointers *Pointers, store content.Store, kind Kind, owner string) (*Snapshot[T], error) {
	ref, err := pointers.Get(ctx, kind, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s pointer of %s: %w", kind, owner, err)
	}
	snapshot := &Snapshot[T]{Owner: owner, Kind: kind}
	if ref == "" {
		return snapshot, nil
	}
	if err := content.GetJSON(ctx, store, ref, snapshot); err != nil {
		return nil, fmt.Errorf("failed to load %s snapshot of %s: %w", kind, owner, err)
	}
	return snapshot, nil
}
