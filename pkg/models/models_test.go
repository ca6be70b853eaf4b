package models

import (
	"testing"

	"blockconnect/pkg/reconcile"

	"github.com/stretchr/testify/assert"
)

func TestNewNotification(t *testing.T) {
	n := NewNotification("bob", NotificationLike, "alice liked your post", "alice", map[string]string{"post_id": "p1"})

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "New Like!", n.Title)
	assert.Equal(t, "p1", n.PostID())
	assert.False(t, n.Read)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestNotificationType(t *testing.T) {
	assert.True(t, NotificationFollowRequest.Valid())
	assert.False(t, NotificationType("poke").Valid())
	assert.Equal(t, "BlockConnect", NotificationType("poke").Title())
}

func TestNotification_AsReadCopies(t *testing.T) {
	n := NewNotification("bob", NotificationSystem, "hello", "", nil)
	read := n.AsRead()

	assert.True(t, read.Seen())
	assert.False(t, n.Seen())
	assert.Equal(t, "", n.PostID())
}

func TestConversationID_Symmetric(t *testing.T) {
	assert.Equal(t, "alice:bob", ConversationID("alice", "bob"))
	assert.Equal(t, ConversationID("alice", "bob"), ConversationID("bob", "alice"))
}

func TestMessage_PeerAndInbound(t *testing.T) {
	m := NewMessage("alice", "bob", "hi")

	assert.Equal(t, MessagePending, m.Status)
	assert.Equal(t, "bob", m.Peer("alice"))
	assert.Equal(t, "alice", m.Peer("bob"))
	assert.True(t, m.Inbound("bob"))
	assert.False(t, m.Inbound("alice"))
}

func TestModelsSatisfyReconcileItem(t *testing.T) {
	notifications := reconcile.Merge([]Notification{NewNotification("bob", NotificationLike, "x", "alice", nil)}, nil)
	messages := reconcile.Merge([]Message{NewMessage("alice", "bob", "hi")}, nil)

	assert.Equal(t, 1, reconcile.Unread(notifications))
	assert.Equal(t, 1, reconcile.Unread(messages))
}
