package contract

import (
	"context"
	"testing"

	"blockconnect/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clobberingRegistry lets another writer replace the profile with a stale
// copy right after each of the first n profile writes.
type clobberingRegistry struct {
	*MemoryRegistry
	stale Profile
	n     int
}

func (r *clobberingRegistry) UpdateProfile(ctx context.Context, address string, profile Profile) error {
	if err := r.MemoryRegistry.UpdateProfile(ctx, address, profile); err != nil {
		return err
	}
	if r.n > 0 {
		r.n--
		return r.MemoryRegistry.UpdateProfile(ctx, address, r.stale)
	}
	return nil
}

func TestEditProfile_KeepsConcurrentEdit(t *testing.T) {
	ctx := context.Background()
	r := &clobberingRegistry{MemoryRegistry: newRegistry(t), stale: Profile{Bio: "gm"}, n: 1}

	profile, err := EditProfile(ctx, r, alice, func(p *Profile) { p.NotificationsHash = "QmNotes" })
	require.NoError(t, err)
	assert.Equal(t, "QmNotes", profile.NotificationsHash)

	stored, err := r.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "gm", stored.Bio)
	assert.Equal(t, "QmNotes", stored.NotificationsHash)
	assert.Equal(t, "alice", stored.Username)
}

func TestEditProfile_GivesUpUnderConstantChurn(t *testing.T) {
	r := &clobberingRegistry{MemoryRegistry: newRegistry(t), stale: Profile{Bio: "gm"}, n: profileRetries}

	_, err := EditProfile(context.Background(), r, alice, func(p *Profile) { p.NotificationsHash = "QmNotes" })
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestEditProfile_UnknownAddress(t *testing.T) {
	_, err := EditProfile(context.Background(), newRegistry(t), carol, func(p *Profile) { p.Bio = "gm" })
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
