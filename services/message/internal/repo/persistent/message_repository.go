package persistent

import (
	"context"
	"fmt"

	"blockconnect/pkg/content"
	"blockconnect/pkg/contract"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/pkg/notify"
	"blockconnect/pkg/queue"
)

// MessageRepository reads a user's mirrored messages and resolves
// usernames against the contract.
type MessageRepository interface {
	Mirrored(ctx context.Context, username string) (*mirror.Snapshot[models.Message], error)
	UserExists(ctx context.Context, username string) error
}

type messageRepository struct {
	pointers *mirror.Pointers
	registry contract.Registry
	store    content.Store
}

func NewMessageRepository(registry contract.Registry, store content.Store) MessageRepository {
	return &messageRepository{
		pointers: mirror.NewPointers(registry),
		registry: registry,
		store:    store,
	}
}

func (r *messageRepository) Mirrored(ctx context.Context, username string) (*mirror.Snapshot[models.Message], error) {
	return mirror.Load[models.Message](ctx, r.pointers, r.store, mirror.KindMessages, username)
}

func (r *messageRepository) UserExists(ctx context.Context, username string) error {
	_, err := r.registry.GetAddressByUsername(ctx, username)
	return err
}

// MessageNotifier tells recipients about new messages through the
// notification pipeline.
type MessageNotifier struct {
	sender notify.Sender
}

func NewMessageNotifier(sender notify.Sender) *MessageNotifier {
	return &MessageNotifier{sender: sender}
}

func (n *MessageNotifier) MessageReceived(ctx context.Context, msg models.Message) error {
	return n.sender.Send(ctx, queue.NotificationTask{
		Type:       models.NotificationMessage,
		Recipients: []string{msg.To},
		Actor:      msg.From,
		Message:    fmt.Sprintf("%s sent you a message", msg.From),
		Data: map[string]string{
			"message_id":      msg.ID,
			"conversation_id": msg.ConversationID,
		},
		Priority: 5,
	})
}
