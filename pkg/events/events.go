// Package events defines the socket protocol: event names, the envelope that
// carries them and the payloads clients send.
package events

import (
	"encoding/json"
	"fmt"
)

// Inbound (client -> server).
const (
	JoinRoom             = "join_room"
	LeaveRoom            = "leave_room"
	SendMessage          = "send_message"
	EditMessage          = "edit_message"
	DeleteMessage        = "delete_message"
	RefreshMessages      = "refresh_messages"
	MarkRead             = "mark_read"
	CreateConversation   = "create_conversation"
	DeleteConversation   = "delete_conversation"
	FetchNotifications   = "fetch_notifications"
	MarkNotificationRead = "mark_notification_read"
	DeleteNotification   = "delete_notification"
	ClearNotifications   = "clear_notifications"
)

// Outbound (server -> client).
const (
	RoomUsersUpdate      = "room_users_update"
	ReceiveMessage       = "receive_message"
	MessageEdited        = "message_edited"
	MessageDeleted       = "message_deleted"
	MessagesRefreshed    = "messages_refreshed"
	UnreadCount          = "unread_count"
	ConversationCreated  = "conversation_created"
	ConversationDeleted  = "conversation_deleted"
	NotificationsList    = "notifications_list"
	NotificationReceived = "notification_received"
	NotificationRead     = "notification_read"
	NotificationDeleted  = "notification_deleted"
	NotificationsCleared = "notifications_cleared"
	OnlineUsersUpdate    = "online_users_update"
	UserOnline           = "user_online"
	UserOffline          = "user_offline"
	Error                = "error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("envelope has no event name")
	}
	return env, nil
}

type Room struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type Send struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Message        string `json:"message"`
}

type Edit struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id" validate:"required"`
	Message        string `json:"message"`
}

type Delete struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id" validate:"required"`
}

type NewConversation struct {
	Subject string `json:"subject" validate:"required,max=200"`
}

type Fetch struct {
	UserID string `json:"user_id"`
}

type NotificationRef struct {
	NotificationID string `json:"notification_id" validate:"required"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}
