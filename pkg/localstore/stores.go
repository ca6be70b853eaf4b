package localstore

import (
	"context"
	"fmt"

	"blockconnect/pkg/models"
	"blockconnect/pkg/reconcile"

	"github.com/redis/go-redis/v9"
)

// Notifications is the local notification list of each user. It is
// versioned under the "notifications" mirror kind.
type Notifications = List[models.Notification]

func NewNotifications(rdb *redis.Client, capacity int) *Notifications {
	version := func(user string) string { return VersionKey("notifications", user) }
	return NewVersionedList[models.Notification](rdb, NotificationsKey, version, capacity)
}

// Messages stores each conversation as its own list and tracks which
// conversations a user takes part in.
type Messages struct {
	conversations *List[models.Message]
	inbox         *Set
}

func NewMessages(rdb *redis.Client, capacity int) *Messages {
	return &Messages{
		conversations: NewList[models.Message](rdb, MessagesKey, capacity),
		inbox:         NewSet(rdb, InboxKey),
	}
}

// Save stores msg in its conversation and indexes the conversation for both
// participants.
func (s *Messages) Save(ctx context.Context, msg models.Message) error {
	if _, err := s.conversations.Add(ctx, msg.ConversationID, msg); err != nil {
		return err
	}
	for _, user := range []string{msg.From, msg.To} {
		if err := s.inbox.Add(ctx, user, msg.ConversationID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Messages) Get(ctx context.Context, conversation, id string) (models.Message, error) {
	return s.conversations.Get(ctx, conversation, id)
}

func (s *Messages) Put(ctx context.Context, msg models.Message) error {
	return s.conversations.Put(ctx, msg.ConversationID, msg)
}

func (s *Messages) Conversation(ctx context.Context, conversation string) ([]models.Message, error) {
	return s.conversations.All(ctx, conversation)
}

// Merge reconciles one conversation with its remote copy.
func (s *Messages) Merge(ctx context.Context, conversation string, remote []models.Message) ([]models.Message, error) {
	return s.conversations.Merge(ctx, conversation, remote)
}

func (s *Messages) MarkRead(ctx context.Context, conversation string, pred func(models.Message) bool) (int, error) {
	return s.conversations.MarkRead(ctx, conversation, pred)
}

// ConversationIDs lists the conversations user takes part in.
func (s *Messages) ConversationIDs(ctx context.Context, user string) ([]string, error) {
	return s.inbox.Members(ctx, user)
}

// ForUser returns every message of every conversation of user, newest first.
// It is the content of the user's mirrored message snapshot.
func (s *Messages) ForUser(ctx context.Context, user string) ([]models.Message, error) {
	ids, err := s.ConversationIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	var all []models.Message
	for _, id := range ids {
		msgs, err := s.conversations.All(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("conversation %s: %w", id, err)
		}
		all = append(all, msgs...)
	}
	reconcile.Sort(all)
	return all, nil
}

// Restore merges a user's mirrored messages back into their conversations and
// re-indexes them. It returns the number of conversations touched.
func (s *Messages) Restore(ctx context.Context, user string, remote []models.Message) (int, error) {
	byConversation := make(map[string][]models.Message)
	for _, msg := range remote {
		if msg.ConversationID == "" || (msg.From != user && msg.To != user) {
			continue
		}
		byConversation[msg.ConversationID] = append(byConversation[msg.ConversationID], msg)
	}

	for conversation, msgs := range byConversation {
		if _, err := s.conversations.Merge(ctx, conversation, msgs); err != nil {
			return 0, err
		}
		peer := msgs[0].Peer(user)
		if err := s.inbox.Add(ctx, user, conversation); err != nil {
			return 0, err
		}
		if err := s.inbox.Add(ctx, peer, conversation); err != nil {
			return 0, err
		}
	}
	return len(byConversation), nil
}
