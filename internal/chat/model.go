package chat

import (
	"errors"
	"time"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusEdited  Status = "edited"
	StatusDeleted Status = "deleted"
)

type Conversation struct {
	ID        string    `json:"conversation_id"`
	Subject   string    `json:"subject"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderIsAdmin  bool      `json:"sender_is_admin"`
	SenderID       string    `json:"sender_id"`
	Message        string    `json:"message"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Outbound room payloads.

type MessageRef struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

type MessageBatch struct {
	ConversationID string    `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

type Unread struct {
	ConversationID string `json:"conversation_id"`
	Unread         int    `json:"unread"`
}

type ConversationRef struct {
	ConversationID string `json:"conversation_id"`
}

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrOwnerMustBeUser = errors.New("only users can open a conversation")
	ErrNotMessageOwner = errors.New("message belongs to another sender")
	ErrNotParticipant  = errors.New("not a participant of this conversation")
)
