package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/pkg/queue"
	"blockconnect/pkg/reconcile"
	"blockconnect/services/notification/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

type NotificationUseCase interface {
	Notify(ctx context.Context, recipient string, notificationType models.NotificationType, message, actor string, data map[string]string) (*models.Notification, error)
	FanOut(ctx context.Context, recipients []string, notificationType models.NotificationType, message, actor string, data map[string]string) (int, error)
	List(ctx context.Context, user string, limit, offset int) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, user string) (int, error)
	MarkRead(ctx context.Context, user, id string) error
	MarkAllRead(ctx context.Context, user string) (int, error)
	Delete(ctx context.Context, user, id string) error
	DeleteByPost(ctx context.Context, user, postID string) (int, error)
	IsMuted(ctx context.Context, user, actor string) (bool, error)
	Mute(ctx context.Context, user, actor string) error
	Unmute(ctx context.Context, user, actor string) error
	Refresh(ctx context.Context, user string) ([]models.Notification, error)
	HandleTask(ctx context.Context, task queue.NotificationTask) error
}

type notificationUseCase struct {
	notificationRepo persistent.NotificationRepository
	store            *localstore.Notifications
	muted            *localstore.Set
	redisClient      *redis.Client
	scheduler        *mirror.Scheduler
	logger           *logger.Logger
}

func NewNotificationUseCase(
	notificationRepo persistent.NotificationRepository,
	store *localstore.Notifications,
	redisClient *redis.Client,
	scheduler *mirror.Scheduler,
	logger *logger.Logger,
) NotificationUseCase {
	return &notificationUseCase{
		notificationRepo: notificationRepo,
		store:            store,
		muted:            localstore.NewSet(redisClient, localstore.MutedKey),
		redisClient:      redisClient,
		scheduler:        scheduler,
		logger:           logger,
	}
}

// Notify stores a notification for recipient and pushes it to connected
// clients. Notifications to oneself and from muted actors are skipped and
// yield a nil notification.
func (uc *notificationUseCase) Notify(ctx context.Context, recipient string, notificationType models.NotificationType, message, actor string, data map[string]string) (*models.Notification, error) {
	if recipient == "" {
		return nil, fmt.Errorf("recipient is required: %w", apperr.ErrInvalidInput)
	}
	if !notificationType.Valid() {
		return nil, fmt.Errorf("unknown notification type %q: %w", notificationType, apperr.ErrInvalidInput)
	}
	if actor != "" && actor == recipient {
		return nil, nil
	}
	if actor != "" {
		muted, err := uc.muted.Has(ctx, recipient, actor)
		if err != nil {
			uc.logger.Warn("[NOTIFICATION] Failed to check mute of %s by %s: %v (assuming unmuted)", actor, recipient, err)
		} else if muted {
			uc.logger.Debug("[NOTIFICATION] %s muted %s, skipping %s", recipient, actor, notificationType)
			return nil, nil
		}
	}

	notification := models.NewNotification(recipient, notificationType, message, actor, data)
	if _, err := uc.store.Add(ctx, recipient, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	uc.scheduler.Publish(ctx, mirror.KindNotifications, recipient)
	uc.publish(ctx, notification)

	uc.logger.Info("[NOTIFICATION] Sent %s notification to %s", notificationType, recipient)
	return &notification, nil
}

func (uc *notificationUseCase) publish(ctx context.Context, notification models.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		uc.logger.Warn("[NOTIFICATION] Failed to marshal notification %s: %v", notification.ID, err)
		return
	}
	channel := localstore.NotifyChannel(notification.Recipient)
	if err := uc.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		uc.logger.Warn("[NOTIFICATION] Failed to publish to channel=%s: %v", channel, err)
	}
}

// FanOut notifies every recipient and returns how many were notified. A
// failure for one recipient is logged and does not stop the others.
func (uc *notificationUseCase) FanOut(ctx context.Context, recipients []string, notificationType models.NotificationType, message, actor string, data map[string]string) (int, error) {
	if len(recipients) == 0 {
		return 0, fmt.Errorf("no recipients: %w", apperr.ErrInvalidInput)
	}

	sent, failed := 0, 0
	for _, recipient := range recipients {
		n, err := uc.Notify(ctx, recipient, notificationType, message, actor, data)
		if err != nil {
			uc.logger.Error("[NOTIFICATION] Failed to notify %s: %v", recipient, err)
			failed++
			continue
		}
		if n != nil {
			sent++
		}
	}

	if failed > 0 && failed == len(recipients) {
		return 0, fmt.Errorf("failed to notify all %d recipients", failed)
	}
	uc.logger.Info("[NOTIFICATION] Fan-out of %s: sent=%d, failed=%d, total=%d", notificationType, sent, failed, len(recipients))
	return sent, nil
}

// List returns a page of user's notifications merged with the mirrored copy,
// newest first, and the total count.
func (uc *notificationUseCase) List(ctx context.Context, user string, limit, offset int) ([]models.Notification, int, error) {
	items, err := uc.Refresh(ctx, user)
	if err != nil {
		uc.logger.Warn("[NOTIFICATION] Serving local notifications of %s: %v", user, err)
		items, err = uc.store.All(ctx, user)
		if err != nil {
			return nil, 0, err
		}
	}
	return reconcile.Page(items, limit, offset), len(items), nil
}

func (uc *notificationUseCase) UnreadCount(ctx context.Context, user string) (int, error) {
	items, err := uc.store.All(ctx, user)
	if err != nil {
		return 0, err
	}
	return reconcile.Unread(items), nil
}

func (uc *notificationUseCase) MarkRead(ctx context.Context, user, id string) error {
	if _, err := uc.store.Get(ctx, user, id); err != nil {
		return err
	}
	changed, err := uc.store.MarkRead(ctx, user, func(n models.Notification) bool { return n.ID == id })
	if err != nil {
		return err
	}
	if changed > 0 {
		uc.scheduler.Publish(ctx, mirror.KindNotifications, user)
	}
	return nil
}

func (uc *notificationUseCase) MarkAllRead(ctx context.Context, user string) (int, error) {
	changed, err := uc.store.MarkRead(ctx, user, func(models.Notification) bool { return true })
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		uc.scheduler.Publish(ctx, mirror.KindNotifications, user)
	}
	return changed, nil
}

func (uc *notificationUseCase) Delete(ctx context.Context, user, id string) error {
	removed, err := uc.store.Remove(ctx, user, func(n models.Notification) bool { return n.ID == id })
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	uc.scheduler.Publish(ctx, mirror.KindNotifications, user)
	return nil
}

// DeleteByPost removes every notification of user that refers to postID.
func (uc *notificationUseCase) DeleteByPost(ctx context.Context, user, postID string) (int, error) {
	if postID == "" {
		return 0, fmt.Errorf("post id is required: %w", apperr.ErrInvalidInput)
	}
	removed, err := uc.store.Remove(ctx, user, func(n models.Notification) bool { return n.PostID() == postID })
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		uc.scheduler.Publish(ctx, mirror.KindNotifications, user)
	}
	return removed, nil
}

func (uc *notificationUseCase) IsMuted(ctx context.Context, user, actor string) (bool, error) {
	return uc.muted.Has(ctx, user, actor)
}

func (uc *notificationUseCase) Mute(ctx context.Context, user, actor string) error {
	if actor == "" || actor == user {
		return fmt.Errorf("invalid actor %q: %w", actor, apperr.ErrInvalidInput)
	}
	if err := uc.muted.Add(ctx, user, actor); err != nil {
		return err
	}
	uc.logger.Info("[NOTIFICATION] %s muted %s", user, actor)
	return nil
}

func (uc *notificationUseCase) Unmute(ctx context.Context, user, actor string) error {
	return uc.muted.Remove(ctx, user, actor)
}

// Refresh pulls the mirrored snapshot and merges it into the local list. On a
// fresh cache this restores the user's notifications and read state. A
// snapshot older than the local version is ignored so local deletions are not
// brought back.
func (uc *notificationUseCase) Refresh(ctx context.Context, user string) ([]models.Notification, error) {
	snapshot, err := uc.notificationRepo.Mirrored(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to load mirrored notifications: %w", err)
	}

	items, merged, err := uc.store.MergeAt(ctx, user, snapshot.Items, snapshot.Version)
	if err != nil {
		return nil, err
	}
	if !merged {
		uc.logger.Debug("[NOTIFICATION] Mirrored notifications of %s at v%d are behind the local list", user, snapshot.Version)
	}
	return items, nil
}

// HandleTask processes a notification task published by another service.
func (uc *notificationUseCase) HandleTask(ctx context.Context, task queue.NotificationTask) error {
	if !task.Type.Valid() || len(task.Recipients) == 0 {
		return fmt.Errorf("invalid notification task %+v: %w", task, queue.ErrPoison)
	}
	uc.logger.Info("[NOTIFICATION HANDLER] Processing %s task for %d recipients", task.Type, len(task.Recipients))
	_, err := uc.FanOut(ctx, task.Recipients, task.Type, task.Message, task.Actor, task.Data)
	return err
}
