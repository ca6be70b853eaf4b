package usecase

import (
	"context"
	"sync"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/services/mirror/internal/entity"
	"blockconnect/services/mirror/internal/repo/persistent"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliceAddr = "0x1111111111111111111111111111111111111111"

type fakeSyncRepo struct {
	mu     sync.Mutex
	states map[string]*entity.SyncState
	saves  int
}

func newFakeSyncRepo() *fakeSyncRepo {
	return &fakeSyncRepo{states: make(map[string]*entity.SyncState)}
}

func (r *fakeSyncRepo) Get(_ context.Context, owner, kind string) (*entity.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[owner+"/"+kind]; ok {
		copied := *state
		return &copied, nil
	}
	return &entity.SyncState{Owner: owner, Kind: kind}, nil
}

func (r *fakeSyncRepo) Save(_ context.Context, state *entity.SyncState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.states[state.Owner+"/"+state.Kind]; ok && stored.Version >= state.Version {
		return false, nil
	}
	copied := *state
	r.states[state.Owner+"/"+state.Kind] = &copied
	r.saves++
	return true, nil
}

func (r *fakeSyncRepo) put(state entity.SyncState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Owner+"/"+state.Kind] = &state
}

// gatedPointers holds the first pointer write until release is closed.
type gatedPointers struct {
	PointerWriter
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedPointers(inner PointerWriter) *gatedPointers {
	return &gatedPointers{PointerWriter: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedPointers) Set(ctx context.Context, kind mirror.Kind, owner, ref string) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.PointerWriter.Set(ctx, kind, owner, ref)
}

func (r *fakeSyncRepo) RecordFailure(_ context.Context, owner, kind, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[owner+"/"+kind]
	if !ok {
		state = &entity.SyncState{Owner: owner, Kind: kind}
		r.states[owner+"/"+kind] = state
	}
	state.Attempts++
	state.LastError = message
	return nil
}

func (r *fakeSyncRepo) ListByOwner(_ context.Context, owner string) ([]*entity.SyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SyncState
	for _, state := range r.states {
		if state.Owner == owner {
			out = append(out, state)
		}
	}
	return out, nil
}

type fixture struct {
	uc            MirrorUseCase
	repo          *fakeSyncRepo
	source        persistent.ListSource
	scheduler     *mirror.Scheduler
	leases        *localstore.Leases
	registry      *contract.MemoryRegistry
	store         *content.MemoryStore
	pointers      *mirror.Pointers
	notifications *localstore.Notifications
	messages      *localstore.Messages
	versions      *localstore.Versions
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := &fixture{
		repo:          newFakeSyncRepo(),
		registry:      contract.NewMemoryRegistry(),
		store:         content.NewMemoryStore(),
		notifications: localstore.NewNotifications(rdb, 100),
		messages:      localstore.NewMessages(rdb, 100),
		versions:      localstore.NewVersions(rdb),
	}
	f.pointers = mirror.NewPointers(f.registry)
	f.source = persistent.NewListSource(f.notifications, f.messages, f.versions)
	f.scheduler = mirror.NewScheduler(f.versions, nil, logger.New())
	f.leases = localstore.NewLeases(rdb, localstore.LeaseTTL, localstore.LeaseWait)
	f.uc = f.useCase(f.pointers)
	return f
}

func (f *fixture) useCase(pointers PointerWriter) MirrorUseCase {
	return NewMirrorUseCase(f.repo, f.source, f.store, pointers, f.scheduler, f.leases, logger.New())
}

func (f *fixture) addNotification(t *testing.T, message string) int64 {
	ctx := context.Background()
	_, err := f.notifications.Add(ctx, "alice", models.NewNotification("alice", models.NotificationLike, message, "bob", nil))
	require.NoError(t, err)
	version, err := f.versions.Current(ctx, string(mirror.KindNotifications), "alice")
	require.NoError(t, err)
	return version
}

func TestProcess_WritesSnapshotAndPointer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))

	version := f.addNotification(t, "bob liked your post")
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: version}))

	snapshot, err := mirror.Load[models.Notification](ctx, f.pointers, f.store, mirror.KindNotifications, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.Version)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "bob liked your post", snapshot.Items[0].Message)

	state, _ := f.repo.Get(ctx, "alice", "notifications")
	assert.Equal(t, int64(1), state.Version)
	assert.NotEmpty(t, state.CID)
	assert.NotNil(t, state.SyncedAt)
}

func TestProcess_SkipsStaleTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))

	first := f.addNotification(t, "one")
	second := f.addNotification(t, "two")

	// The newer task arrives first and covers both mutations.
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: second}))
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: first}))
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: second}))
	assert.Equal(t, 1, f.repo.saves)

	snapshot, err := mirror.Load[models.Notification](ctx, f.pointers, f.store, mirror.KindNotifications, "alice")
	require.NoError(t, err)
	assert.Len(t, snapshot.Items, 2)
}

func TestProcess_RecordsAtLeastLocalVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))

	first := f.addNotification(t, "one")
	f.addNotification(t, "two")

	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: first}))
	state, _ := f.repo.Get(ctx, "alice", "notifications")
	assert.Equal(t, int64(2), state.Version)
}

func TestProcess_ConcurrentWorkersKeepNewestState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))
	gate := newGatedPointers(f.pointers)
	uc := f.useCase(gate)

	first := f.addNotification(t, "one")
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: first})
	}()
	<-gate.entered

	// The list changes while the first worker is still writing its pointer.
	second := f.addNotification(t, "two")
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: second})
	}()

	close(gate.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	state, _ := f.repo.Get(ctx, "alice", "notifications")
	assert.Equal(t, second, state.Version)

	snapshot, err := mirror.Load[models.Notification](ctx, f.pointers, f.store, mirror.KindNotifications, "alice")
	require.NoError(t, err)
	assert.Equal(t, second, snapshot.Version)
	assert.Len(t, snapshot.Items, 2)
}

func TestProcess_ReschedulesWhenSaveLoses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))
	gate := newGatedPointers(f.pointers)
	uc := f.useCase(gate)

	version := f.addNotification(t, "one")
	done := make(chan error, 1)
	go func() {
		done <- uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: version})
	}()
	<-gate.entered

	// A worker that outlived its lease records a newer version meanwhile.
	f.repo.put(entity.SyncState{Owner: "alice", Kind: "notifications", Version: version + 5})
	close(gate.release)
	require.NoError(t, <-done)

	state, _ := f.repo.Get(ctx, "alice", "notifications")
	assert.Equal(t, version+5, state.Version)
	current, err := f.versions.Current(ctx, string(mirror.KindNotifications), "alice")
	require.NoError(t, err)
	assert.Equal(t, version+1, current)
}

func TestProcess_Messages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))

	require.NoError(t, f.messages.Save(ctx, models.NewMessage("alice", "bob", "hi")))
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindMessages, Version: 1}))

	snapshot, err := mirror.Load[models.Message](ctx, f.pointers, f.store, mirror.KindMessages, "alice")
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "hi", snapshot.Items[0].Content)
}

func TestProcess_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// alice is not registered, so the pointer cannot be written.
	version := f.addNotification(t, "one")
	err := f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: version})
	require.Error(t, err)

	states, err := f.uc.Status(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].Attempts)
	assert.NotEmpty(t, states[0].LastError)
	assert.Equal(t, int64(0), states[0].Version)
	assert.Equal(t, 0, f.repo.saves)
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.registry.Register(ctx, aliceAddr, "alice"))

	version := f.addNotification(t, "one")
	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: version}))

	require.NoError(t, f.uc.Resync(ctx, "alice", mirror.KindNotifications))
	current, err := f.versions.Current(ctx, string(mirror.KindNotifications), "alice")
	require.NoError(t, err)
	assert.Equal(t, version+1, current)

	require.NoError(t, f.uc.Process(ctx, mirror.Task{Owner: "alice", Kind: mirror.KindNotifications, Version: current}))
	assert.Equal(t, 2, f.repo.saves)

	assert.ErrorIs(t, f.uc.Resync(ctx, "alice", "likes"), apperr.ErrInvalidInput)
}
