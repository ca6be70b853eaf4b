package persistent

import (
	"context"

	"blockconnect/pkg/localstore"
	"blockconnect/pkg/models"
)

// ListSource reads the local lists that get mirrored.
type ListSource interface {
	Notifications(ctx context.Context, owner string) ([]models.Notification, error)
	Messages(ctx context.Context, owner string) ([]models.Message, error)
	Version(ctx context.Context, kind, owner string) (int64, error)
}

type listSource struct {
	notifications *localstore.Notifications
	messages      *localstore.Messages
	versions      *localstore.Versions
}

func NewListSource(notifications *localstore.Notifications, messages *localstore.Messages, versions *localstore.Versions) ListSource {
	return &listSource{notifications: notifications, messages: messages, versions: versions}
}

func (s *listSource) Notifications(ctx context.Context, owner string) ([]models.Notification, error) {
	return s.notifications.All(ctx, owner)
}

func (s *listSource) Messages(ctx context.Context, owner string) ([]models.Message, error) {
	return s.messages.ForUser(ctx, owner)
}

func (s *listSource) Version(ctx context.Context, kind, owner string) (int64, error) {
	return s.versions.Current(ctx, kind, owner)
}
