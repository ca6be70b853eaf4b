// Package notify hands notifications produced by one service to the
// recipients' notification lists, through the queue when one is available.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"blockconnect/pkg/localstore"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
	"blockconnect/pkg/queue"

	"github.com/redis/go-redis/v9"
)

type Sender interface {
	Send(ctx context.Context, task queue.NotificationTask) error
}

// Queue publishes tasks for the notification service to consume.
type Queue struct {
	client *queue.Client
}

func NewQueue(client *queue.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Send(ctx context.Context, task queue.NotificationTask) error {
	return q.client.PublishNotificationTask(ctx, task)
}

// Direct writes notifications into the recipients' local lists itself. It
// applies the same self and mute rules as the notification service.
type Direct struct {
	notifications *localstore.Notifications
	muted         *localstore.Set
	redisClient   *redis.Client
	scheduler     *mirror.Scheduler
	logger        *logger.Logger
}

func NewDirect(redisClient *redis.Client, capacity int, scheduler *mirror.Scheduler, log *logger.Logger) *Direct {
	return &Direct{
		notifications: localstore.NewNotifications(redisClient, capacity),
		muted:         localstore.NewSet(redisClient, localstore.MutedKey),
		redisClient:   redisClient,
		scheduler:     scheduler,
		logger:        log,
	}
}

func (d *Direct) Send(ctx context.Context, task queue.NotificationTask) error {
	if !task.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", task.Type)
	}

	var lastErr error
	for _, recipient := range task.Recipients {
		if recipient == "" || recipient == task.Actor {
			continue
		}
		if task.Actor != "" {
			if muted, err := d.muted.Has(ctx, recipient, task.Actor); err == nil && muted {
				continue
			}
		}

		notification := models.NewNotification(recipient, task.Type, task.Message, task.Actor, task.Data)
		if _, err := d.notifications.Add(ctx, recipient, notification); err != nil {
			d.logger.Warn("[NOTIFY] Failed to store %s notification for %s: %v", task.Type, recipient, err)
			lastErr = err
			continue
		}
		d.scheduler.Publish(ctx, mirror.KindNotifications, recipient)

		if payload, err := json.Marshal(notification); err == nil {
			d.redisClient.Publish(ctx, localstore.NotifyChannel(recipient), payload)
		}
	}
	return lastErr
}

// New returns a queue sender when queueClient is set and a direct one
// otherwise.
func New(queueClient *queue.Client, redisClient *redis.Client, capacity int, scheduler *mirror.Scheduler, log *logger.Logger) Sender {
	if queueClient != nil {
		return NewQueue(queueClient)
	}
	log.Warn("[NOTIFY] Queue unavailable, notifications are written directly")
	return NewDirect(redisClient, capacity, scheduler, log)
}

// BestEffort sends task and logs a failure instead of returning it.
func BestEffort(ctx context.Context, sender Sender, task queue.NotificationTask, log *logger.Logger) {
	if err := sender.Send(ctx, task); err != nil {
		log.Warn("[NOTIFY] Failed to send %s notification to %v: %v", task.Type, task.Recipients, err)
	}
}
