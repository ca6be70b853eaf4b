package contract

import (
	"context"
	"fmt"

	"blockconnect/pkg/apperr"
)

const profileRetries = 3

// EditProfile applies edit to the profile of address and writes it back.
//
// The contract stores the profile as one record, so the bio/avatar edit and
// the notifications pointer race on it. After each write the profile is read
// back; when a concurrent writer replaced it, edit is applied again to the
// fresh copy. edit must only set its own fields so that re-applying it is
// harmless.
func EditProfile(ctx context.Context, registry Registry, address string, edit func(*Profile)) (*Profile, error) {
	for attempt := 0; attempt < profileRetries; attempt++ {
		profile, err := registry.GetProfile(ctx, address)
		if err != nil {
			return nil, err
		}
		edit(profile)
		if err := registry.UpdateProfile(ctx, address, *profile); err != nil {
			return nil, err
		}

		stored, err := registry.GetProfile(ctx, address)
		if err != nil {
			return nil, err
		}
		// The contract owns the username.
		stored.Username = profile.Username
		if *stored == *profile {
			return profile, nil
		}
	}
	return nil, fmt.Errorf("profile of %s keeps changing: %w", address, apperr.ErrConflict)
}
