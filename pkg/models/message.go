package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

// Message is a direct message between two usernames. Read refers to the
// recipient having seen it.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	Content        string        `json:"content"`
	Status         MessageStatus `json:"status"`
	Error          string        `json:"error,omitempty"`
	Read           bool          `json:"read"`
	CreatedAt      time.Time     `json:"created_at"`
}

func NewMessage(from, to, content string) Message {
	return Message{
		ID:             uuid.New().String(),
		ConversationID: ConversationID(from, to),
		From:           from,
		To:             to,
		Content:        content,
		Status:         MessagePending,
		CreatedAt:      time.Now().UTC(),
	}
}

// ConversationID is the two usernames sorted and joined with ":", so both
// participants derive the same id.
func ConversationID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// Peer returns the other participant from user's point of view.
func (m Message) Peer(user string) string {
	if m.From == user {
		return m.To
	}
	return m.From
}

// Inbound reports whether user received the message.
func (m Message) Inbound(user string) bool {
	return m.To == user
}

func (m Message) Key() string     { return m.ID }
func (m Message) Time() time.Time { return m.CreatedAt }
func (m Message) Seen() bool      { return m.Read }
func (m Message) AsRead() Message {
	m.Read = true
	return m
}
