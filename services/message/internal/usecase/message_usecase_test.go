package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/services/message/internal/repo/persistent"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) MessageReceived(ctx context.Context, msg models.Message) error {
	return m.Called(msg.To).Error(0)
}

type fixture struct {
	uc       MessageUseCase
	notifier *MockNotifier
	store    *localstore.Messages
	versions *localstore.Versions
	pointers *mirror.Pointers
	blobs    *content.MemoryStore
}

var addresses = map[string]string{
	"alice": "0x1111111111111111111111111111111111111111",
	"bob":   "0x2222222222222222222222222222222222222222",
	"carol": "0x3333333333333333333333333333333333333333",
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	registry := contract.NewMemoryRegistry()
	for name, address := range addresses {
		require.NoError(t, registry.Register(ctx, address, name))
	}

	log := logger.New()
	blobs := content.NewMemoryStore()
	store := localstore.NewMessages(rdb, 500)
	versions := localstore.NewVersions(rdb)
	notifier := new(MockNotifier)

	uc := NewMessageUseCase(
		persistent.NewMessageRepository(registry, blobs),
		store,
		versions,
		notifier,
		mirror.NewScheduler(versions, nil, log),
		log,
	)
	return &fixture{
		uc:       uc,
		notifier: notifier,
		store:    store,
		versions: versions,
		pointers: mirror.NewPointers(registry),
		blobs:    blobs,
	}
}

func TestSend_DeliversAndBumpsBothVersions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.On("MessageReceived", "bob").Return(nil)

	msg, err := f.uc.Send(ctx, "alice", "bob", "  gm  ")
	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.Equal(t, "gm", msg.Content)
	assert.Equal(t, "alice:bob", msg.ConversationID)

	stored, err := f.store.Get(ctx, "alice:bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, stored.Status)

	for _, user := range []string{"alice", "bob"} {
		v, _ := f.versions.Current(ctx, string(mirror.KindMessages), user)
		assert.Equal(t, int64(1), v, user)
	}
	f.notifier.AssertExpectations(t)
}

func TestSend_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.uc.Send(ctx, "alice", "alice", "hi")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.Send(ctx, "alice", "bob", "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.Send(ctx, "alice", "bob", strings.Repeat("x", MaxContentLength+1))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.uc.Send(ctx, "alice", "nobody", "hi")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSend_FailedDeliveryThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.On("MessageReceived", "bob").Return(errors.New("queue down")).Once()
	f.notifier.On("MessageReceived", "bob").Return(nil).Once()

	msg, err := f.uc.Send(ctx, "alice", "bob", "hello?")
	require.NoError(t, err)
	assert.Equal(t, models.MessageFailed, msg.Status)
	assert.NotEmpty(t, msg.Error)

	_, err = f.uc.Retry(ctx, "bob", msg.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	retried, err := f.uc.Retry(ctx, "alice", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageSent, retried.Status)
	assert.Empty(t, retried.Error)

	_, err = f.uc.Retry(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.uc.Retry(ctx, "alice", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f.notifier.AssertExpectations(t)
}

func TestReadStateAndConversations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.On("MessageReceived", mock.Anything).Return(nil)

	f.uc.Send(ctx, "bob", "alice", "one")
	f.uc.Send(ctx, "bob", "alice", "two")
	f.uc.Send(ctx, "alice", "bob", "reply")
	time.Sleep(time.Millisecond)
	f.uc.Send(ctx, "carol", "alice", "hey")

	unread, err := f.uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	summaries, err := f.uc.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "carol", summaries[0].Peer)
	assert.Equal(t, 1, summaries[0].Unread)
	assert.Equal(t, "bob", summaries[1].Peer)
	assert.Equal(t, 2, summaries[1].Unread)

	changed, err := f.uc.MarkRead(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	unread, _ = f.uc.UnreadCount(ctx, "alice")
	assert.Equal(t, 1, unread)

	bobUnread, _ := f.uc.UnreadCount(ctx, "bob")
	assert.Equal(t, 1, bobUnread)

	_, err = f.uc.MarkRead(ctx, "alice", "alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestConversation_MergesMirroredSnapshotOnFreshCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.On("MessageReceived", mock.Anything).Return(nil)

	old := models.NewMessage("bob", "alice", "from the mirror")
	old.Status = models.MessageSent
	old.Read = true
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)

	ref, err := content.PutJSON(ctx, f.blobs, mirror.Snapshot[models.Message]{
		Owner: "alice", Kind: mirror.KindMessages, Version: 9, Items: []models.Message{old},
	})
	require.NoError(t, err)
	require.NoError(t, f.pointers.Set(ctx, mirror.KindMessages, "alice", ref))

	msgs, err := f.uc.Conversation(ctx, "alice", "bob", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, old.ID, msgs[0].ID)
	assert.True(t, msgs[0].Read)

	v, _ := f.versions.Current(ctx, string(mirror.KindMessages), "alice")
	assert.Equal(t, int64(9), v)

	f.uc.Send(ctx, "alice", "bob", "new")
	msgs, err = f.uc.Conversation(ctx, "alice", "bob", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "new", msgs[0].Content)
}
