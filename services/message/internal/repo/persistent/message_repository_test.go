package persistent

import (
	"context"
	"testing"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/models"
	"blockconnect/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	tasks []queue.NotificationTask
}

func (s *recordingSender) Send(_ context.Context, task queue.NotificationTask) error {
	s.tasks = append(s.tasks, task)
	return nil
}

func TestMessageNotifier(t *testing.T) {
	sender := &recordingSender{}
	msg := models.NewMessage("alice", "bob", "hi")

	require.NoError(t, NewMessageNotifier(sender).MessageReceived(context.Background(), msg))
	require.Len(t, sender.tasks, 1)

	task := sender.tasks[0]
	assert.Equal(t, models.NotificationMessage, task.Type)
	assert.Equal(t, []string{"bob"}, task.Recipients)
	assert.Equal(t, "alice", task.Actor)
	assert.Equal(t, msg.ID, task.Data["message_id"])
	assert.Equal(t, "alice:bob", task.Data["conversation_id"])
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	registry := contract.NewMemoryRegistry()
	require.NoError(t, registry.Register(ctx, "0x1111111111111111111111111111111111111111", "alice"))
	repo := NewMessageRepository(registry, content.NewMemoryStore())

	assert.NoError(t, repo.UserExists(ctx, "alice"))
	assert.ErrorIs(t, repo.UserExists(ctx, "ghost"), apperr.ErrNotFound)

	snapshot, err := repo.Mirrored(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)
	assert.Equal(t, int64(0), snapshot.Version)
}
