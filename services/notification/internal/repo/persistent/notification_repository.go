package persistent

import (
	"context"

	"blockconnect/pkg/content"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"
)

// NotificationRepository reads the mirrored copy of a user's notifications:
// the snapshot the contract profile points at.
type NotificationRepository interface {
	Mirrored(ctx context.Context, username string) (*mirror.Snapshot[models.Notification], error)
}

type notificationRepository struct {
	pointers *mirror.Pointers
	store    content.Store
}

func NewNotificationRepository(pointers *mirror.Pointers, store content.Store) NotificationRepository {
	return &notificationRepository{pointers: pointers, store: store}
}

func (r *notificationRepository) Mirrored(ctx context.Context, username string) (*mirror.Snapshot[models.Notification], error) {
	return mirror.Load[models.Notification](ctx, r.pointers, r.store, mirror.KindNotifications, username)
}
