package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/models"
	"blockconnect/pkg/queue"
	"blockconnect/services/follow/internal/repo/persistent"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

var errRPC = errors.New("rpc: connection refused")

// flakyRegistry fails relation reads while down is set.
type flakyRegistry struct {
	*contract.MemoryRegistry
	down bool
}

func (r *flakyRegistry) GetFollowers(ctx context.Context, address string) ([]string, error) {
	if r.down {
		return nil, errRPC
	}
	return r.MemoryRegistry.GetFollowers(ctx, address)
}

func (r *flakyRegistry) GetPendingRequests(ctx context.Context, address string) ([]string, error) {
	if r.down {
		return nil, errRPC
	}
	return r.MemoryRegistry.GetPendingRequests(ctx, address)
}

type recordingSender struct {
	mu    sync.Mutex
	tasks []queue.NotificationTask
}

func (s *recordingSender) Send(_ context.Context, task queue.NotificationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return nil
}

type fixture struct {
	uc       FollowUseCase
	registry *flakyRegistry
	sender   *recordingSender
}

func newFixture(t *testing.T) *fixture {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	registry := &flakyRegistry{MemoryRegistry: contract.NewMemoryRegistry()}
	require.NoError(t, registry.Register(ctx, alice, "alice"))
	require.NoError(t, registry.Register(ctx, bob, "bob"))

	f := &fixture{registry: registry, sender: &recordingSender{}}
	f.uc = NewFollowUseCase(
		persistent.NewRelationRepository(registry),
		localstore.NewCache(rdb, localstore.RelationTTL),
		f.sender,
		logger.New(),
	)
	return f
}

func TestRequestAndAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	request, err := f.uc.Request(ctx, bob, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", request.From)
	assert.False(t, request.Accepted)

	pending, err := f.uc.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, pending.Users)
	assert.False(t, pending.Stale)

	request, err = f.uc.Accept(ctx, alice, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, request.Accepted)

	followers, err := f.uc.Followers(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, followers.Users)
	assert.Equal(t, 1, followers.Count)

	following, err := f.uc.Following(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, following.Users)

	pending, err = f.uc.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending.Users)

	require.Len(t, f.sender.tasks, 2)
	assert.Equal(t, models.NotificationFollowRequest, f.sender.tasks[0].Type)
	assert.Equal(t, []string{"alice"}, f.sender.tasks[0].Recipients)
	assert.Equal(t, models.NotificationFollowAccept, f.sender.tasks[1].Type)
	assert.Equal(t, []string{"bob"}, f.sender.tasks[1].Recipients)
}

func TestRequest_SelfFollowRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Request(context.Background(), alice, "alice", "alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, f.sender.tasks)
}

func TestRequest_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Request(ctx, bob, "bob", "alice")
	require.NoError(t, err)
	_, err = f.uc.Request(ctx, bob, "bob", "alice")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.uc.Request(ctx, bob, "bob", "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAccept_WithoutRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Accept(context.Background(), alice, "alice", "bob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFollowers_ServesStaleCacheWhenContractFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Request(ctx, bob, "bob", "alice")
	require.NoError(t, err)
	_, err = f.uc.Accept(ctx, alice, "alice", "bob")
	require.NoError(t, err)
	_, err = f.uc.Followers(ctx, "alice")
	require.NoError(t, err)

	f.registry.down = true

	followers, err := f.uc.Followers(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, followers.Stale)
	assert.Equal(t, []string{"bob"}, followers.Users)

	_, err = f.uc.Pending(ctx, "bob")
	assert.ErrorIs(t, err, apperr.ErrUnavailable, "nothing cached")
}

func TestFollowers_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Followers(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
