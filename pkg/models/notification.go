package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLike          NotificationType = "like"
	NotificationComment       NotificationType = "comment"
	NotificationFollowRequest NotificationType = "follow_request"
	NotificationFollowAccept  NotificationType = "follow_accept"
	NotificationMessage       NotificationType = "message"
	NotificationMention       NotificationType = "mention"
	NotificationSystem        NotificationType = "system"
)

var notificationTitles = map[NotificationType]string{
	NotificationLike:          "New Like!",
	NotificationComment:       "New Comment",
	NotificationFollowRequest: "New Follow Request",
	NotificationFollowAccept:  "Follow Request Accepted",
	NotificationMessage:       "New Message",
	NotificationMention:       "You were mentioned",
	NotificationSystem:        "BlockConnect",
}

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	_, ok := notificationTitles[t]
	return ok
}

// Title is the default title shown for the type.
func (t NotificationType) Title() string {
	if title, ok := notificationTitles[t]; ok {
		return title
	}
	return notificationTitles[NotificationSystem]
}

// Notification is addressed to a single recipient username.
type Notification struct {
	ID        string            `json:"id"`
	Recipient string            `json:"recipient"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Actor     string            `json:"actor,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewNotification(recipient string, notificationType NotificationType, message, actor string, data map[string]string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Type:      notificationType,
		Title:     notificationType.Title(),
		Message:   message,
		Actor:     actor,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// PostID returns the post the notification refers to, if any.
func (n Notification) PostID() string {
	return n.Data["post_id"]
}

func (n Notification) Key() string     { return n.ID }
func (n Notification) Time() time.Time { return n.CreatedAt }
func (n Notification) Seen() bool      { return n.Read }
func (n Notification) AsRead() Notification {
	n.Read = true
	return n
}
