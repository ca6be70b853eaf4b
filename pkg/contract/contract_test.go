package contract

import (
	"context"
	"strings"
	"testing"

	"blockconnect/pkg/apperr"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
	carol = "0x3333333333333333333333333333333333333333"
)

func TestRegistryABI_HasEveryMethod(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	require.NoError(t, err)

	for _, name := range []string{
		"register", "login", "getUsernames", "getAddressByUsername", "getUsername",
		"createPost", "getPostsByUser", "getPost", "likePost", "getPostLikes",
		"sendFollowRequest", "acceptFollowRequest", "getPendingRequests", "getFollowers", "getFollowing",
		"updateMessagesHash", "getMessagesHash", "updateProfile", "getProfile",
	} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "method %s missing from ABI", name)
	}

	assert.Len(t, parsed.Methods["getPost"].Outputs, 4)
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0xAbCdEf0000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", got)

	_, err = NormalizeAddress("alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func newRegistry(t *testing.T) *MemoryRegistry {
	t.Helper()
	ctx := context.Background()
	r := NewMemoryRegistry()
	require.NoError(t, r.Register(ctx, alice, "alice"))
	require.NoError(t, r.Register(ctx, bob, "bob"))
	return r
}

func TestMemoryRegistry_Identity(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	assert.ErrorIs(t, r.Register(ctx, carol, "alice"), apperr.ErrConflict)
	assert.ErrorIs(t, r.Register(ctx, alice, "alice2"), apperr.ErrConflict)

	ok, err := r.Login(ctx, alice)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Login(ctx, carol)
	require.NoError(t, err)
	assert.False(t, ok)

	names, _ := r.GetUsernames(ctx)
	assert.Equal(t, []string{"alice", "bob"}, names)

	address, err := r.GetAddressByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob, address)

	_, err = r.GetAddressByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryRegistry_PostsAndLikes(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	require.NoError(t, r.CreatePost(ctx, alice, "p1", "QmHash"))
	assert.ErrorIs(t, r.CreatePost(ctx, carol, "p2", "QmHash"), apperr.ErrConflict)

	ids, _ := r.GetPostsByUser(ctx, alice)
	assert.Equal(t, []string{"p1"}, ids)

	require.NoError(t, r.LikePost(ctx, bob, "p1"))
	post, err := r.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Likes)
	assert.Equal(t, alice, post.Author)

	require.NoError(t, r.LikePost(ctx, bob, "p1"))
	likes, _ := r.GetPostLikes(ctx, "p1")
	assert.Empty(t, likes)

	assert.ErrorIs(t, r.LikePost(ctx, bob, "missing"), apperr.ErrNotFound)
}

func TestMemoryRegistry_Follows(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	assert.ErrorIs(t, r.SendFollowRequest(ctx, alice, alice), apperr.ErrInvalidInput)
	require.NoError(t, r.SendFollowRequest(ctx, alice, bob))
	assert.ErrorIs(t, r.SendFollowRequest(ctx, alice, bob), apperr.ErrConflict)

	pending, _ := r.GetPendingRequests(ctx, bob)
	assert.Equal(t, []string{alice}, pending)

	assert.ErrorIs(t, r.AcceptFollowRequest(ctx, alice, bob), apperr.ErrNotFound)
	require.NoError(t, r.AcceptFollowRequest(ctx, bob, alice))

	followers, _ := r.GetFollowers(ctx, bob)
	following, _ := r.GetFollowing(ctx, alice)
	pending, _ = r.GetPendingRequests(ctx, bob)
	assert.Equal(t, []string{alice}, followers)
	assert.Equal(t, []string{bob}, following)
	assert.Empty(t, pending)

	assert.ErrorIs(t, r.SendFollowRequest(ctx, alice, bob), apperr.ErrConflict)
}

func TestMemoryRegistry_Pointers(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	require.NoError(t, r.UpdateMessagesHash(ctx, alice, "QmMessages"))
	hash, _ := r.GetMessagesHash(ctx, alice)
	assert.Equal(t, "QmMessages", hash)

	require.NoError(t, r.UpdateProfile(ctx, alice, Profile{Username: "mallory", Bio: "gm", NotificationsHash: "QmNotes"}))
	profile, err := r.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "gm", profile.Bio)
	assert.Equal(t, "QmNotes", profile.NotificationsHash)

	assert.ErrorIs(t, r.UpdateMessagesHash(ctx, carol, "Qm"), apperr.ErrConflict)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("register", assert.AnError), apperr.ErrUnavailable)
	assert.ErrorIs(t, classify("register", errString("execution reverted: taken")), apperr.ErrConflict)
	assert.ErrorIs(t, classify("register", context.Canceled), context.Canceled)
}

type errString string

func (e errString) Error() string { return string(e) }
