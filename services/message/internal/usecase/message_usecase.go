package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/pkg/reconcile"
	"blockconnect/services/message/internal/repo/persistent"
)

const MaxContentLength = 2000

// Notifier tells a recipient about a new message. A failure marks the
// message failed.
type Notifier interface {
	MessageReceived(ctx context.Context, msg models.Message) error
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID          string         `json:"id"`
	Peer        string         `json:"peer"`
	LastMessage models.Message `json:"last_message"`
	Unread      int            `json:"unread"`
}

type MessageUseCase interface {
	Send(ctx context.Context, from, to, content string) (*models.Message, error)
	Retry(ctx context.Context, user, id string) (*models.Message, error)
	Conversation(ctx context.Context, user, peer string, limit int) ([]models.Message, error)
	Conversations(ctx context.Context, user string) ([]ConversationSummary, error)
	MarkRead(ctx context.Context, user, peer string) (int, error)
	UnreadCount(ctx context.Context, user string) (int, error)
}

type messageUseCase struct {
	messageRepo persistent.MessageRepository
	store       *localstore.Messages
	versions    *localstore.Versions
	notifier    Notifier
	scheduler   *mirror.Scheduler
	logger      *logger.Logger
}

func NewMessageUseCase(
	messageRepo persistent.MessageRepository,
	store *localstore.Messages,
	versions *localstore.Versions,
	notifier Notifier,
	scheduler *mirror.Scheduler,
	logger *logger.Logger,
) MessageUseCase {
	return &messageUseCase{
		messageRepo: messageRepo,
		store:       store,
		versions:    versions,
		notifier:    notifier,
		scheduler:   scheduler,
		logger:      logger,
	}
}

// Send stores the message as pending and delivers it. A delivery failure
// leaves the stored message failed and is not returned as an error; the
// sender can retry it.
func (uc *messageUseCase) Send(ctx context.Context, from, to, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case to == "" || from == "":
		return nil, fmt.Errorf("sender and recipient are required: %w", apperr.ErrInvalidInput)
	case from == to:
		return nil, fmt.Errorf("cannot message yourself: %w", apperr.ErrInvalidInput)
	case content == "":
		return nil, fmt.Errorf("message is empty: %w", apperr.ErrInvalidInput)
	case utf8.RuneCountInString(content) > MaxContentLength:
		return nil, fmt.Errorf("message longer than %d characters: %w", MaxContentLength, apperr.ErrInvalidInput)
	}

	if err := uc.messageRepo.UserExists(ctx, to); err != nil {
		return nil, fmt.Errorf("recipient %s: %w", to, err)
	}

	msg := models.NewMessage(from, to, content)
	if err := uc.store.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	return uc.deliver(ctx, msg)
}

func (uc *messageUseCase) deliver(ctx context.Context, msg models.Message) (*models.Message, error) {
	if err := uc.notifier.MessageReceived(ctx, msg); err != nil {
		uc.logger.Warn("[MESSAGE] Delivery of %s to %s failed: %v", msg.ID, msg.To, err)
		msg.Status = models.MessageFailed
		msg.Error = "delivery failed"
	} else {
		msg.Status = models.MessageSent
		msg.Error = ""
	}

	if err := uc.store.Put(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}
	uc.scheduler.Schedule(ctx, mirror.KindMessages, msg.From, msg.To)

	uc.logger.Info("[MESSAGE] %s -> %s: %s", msg.From, msg.To, msg.Status)
	return &msg, nil
}

// Retry redelivers a failed message. Only its sender may retry it.
func (uc *messageUseCase) Retry(ctx context.Context, user, id string) (*models.Message, error) {
	msg, err := uc.find(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if msg.From != user {
		return nil, fmt.Errorf("only the sender can retry a message: %w", apperr.ErrForbidden)
	}
	if msg.Status != models.MessageFailed {
		return nil, fmt.Errorf("message is %s, only failed messages can be retried: %w", msg.Status, apperr.ErrConflict)
	}

	msg.Status = models.MessagePending
	if err := uc.store.Put(ctx, msg); err != nil {
		return nil, err
	}
	return uc.deliver(ctx, msg)
}

func (uc *messageUseCase) find(ctx context.Context, user, id string) (models.Message, error) {
	ids, err := uc.store.ConversationIDs(ctx, user)
	if err != nil {
		return models.Message{}, err
	}
	for _, conversation := range ids {
		msg, err := uc.store.Get(ctx, conversation, id)
		if err == nil {
			return msg, nil
		}
	}
	return models.Message{}, fmt.Errorf("message %s: %w", id, apperr.ErrNotFound)
}

// refresh restores user's mirrored messages when the snapshot is at least as
// new as the local state. Failures only cost freshness.
func (uc *messageUseCase) refresh(ctx context.Context, user string) {
	snapshot, err := uc.messageRepo.Mirrored(ctx, user)
	if err != nil {
		uc.logger.Warn("[MESSAGE] Serving local messages of %s: %v", user, err)
		return
	}

	kind := string(mirror.KindMessages)
	local, err := uc.versions.Current(ctx, kind, user)
	if err != nil || snapshot.Version < local || len(snapshot.Items) == 0 {
		return
	}

	if _, err := uc.store.Restore(ctx, user, snapshot.Items); err != nil {
		uc.logger.Warn("[MESSAGE] Failed to restore messages of %s: %v", user, err)
		return
	}
	if _, err := uc.versions.Raise(ctx, kind, user, snapshot.Version); err != nil {
		uc.logger.Warn("[MESSAGE] %v", err)
	}
}

// Conversation returns the newest messages between user and peer, newest
// first, merged with user's mirrored copy.
func (uc *messageUseCase) Conversation(ctx context.Context, user, peer string, limit int) ([]models.Message, error) {
	if peer == "" || peer == user {
		return nil, fmt.Errorf("invalid peer %q: %w", peer, apperr.ErrInvalidInput)
	}
	uc.refresh(ctx, user)

	msgs, err := uc.store.Conversation(ctx, models.ConversationID(user, peer))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	return reconcile.Trim(msgs, limit), nil
}

func inboundUnread(user string, msgs []models.Message) int {
	var inbound []models.Message
	for _, m := range msgs {
		if m.Inbound(user) {
			inbound = append(inbound, m)
		}
	}
	return reconcile.Unread(inbound)
}

// Conversations lists user's peers with the last message and unread count,
// most recent first.
func (uc *messageUseCase) Conversations(ctx context.Context, user string) ([]ConversationSummary, error) {
	uc.refresh(ctx, user)

	ids, err := uc.store.ConversationIDs(ctx, user)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(ids))
	for _, id := range ids {
		msgs, err := uc.store.Conversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		summaries = append(summaries, ConversationSummary{
			ID:          id,
			Peer:        msgs[0].Peer(user),
			LastMessage: msgs[0],
			Unread:      inboundUnread(user, msgs),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}

// MarkRead marks every message user received from peer as read.
func (uc *messageUseCase) MarkRead(ctx context.Context, user, peer string) (int, error) {
	if peer == "" || peer == user {
		return 0, fmt.Errorf("invalid peer %q: %w", peer, apperr.ErrInvalidInput)
	}
	changed, err := uc.store.MarkRead(ctx, models.ConversationID(user, peer), func(m models.Message) bool {
		return m.Inbound(user)
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		uc.scheduler.Schedule(ctx, mirror.KindMessages, user, peer)
	}
	return changed, nil
}

func (uc *messageUseCase) UnreadCount(ctx context.Context, user string) (int, error) {
	ids, err := uc.store.ConversationIDs(ctx, user)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		msgs, err := uc.store.Conversation(ctx, id)
		if err != nil {
			return 0, err
		}
		total += inboundUnread(user, msgs)
	}
	return total, nil
}
