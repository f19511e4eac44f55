package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iptv-live/internal/identity"
	"iptv-live/internal/notification"
	"iptv-live/internal/pubsub"
	"iptv-live/pkg/events"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Notifier is the part of the notification dispatcher the router needs.
type Notifier interface {
	CreateAndEmit(ctx context.Context, req notification.Request) (*notification.Notification, error)
	NotifyAdmin(ctx context.Context, req notification.Request) (*notification.Notification, error)
	Admin() notification.Recipient
}

// Presence answers who is currently looking at a room or connected at all.
type Presence interface {
	InRoom(conversationID, userID string) bool
	IsOnline(userID string) bool
}

// Router handles the chat operations of one identity. Every mutation is
// persisted before it is published; operations on one conversation are
// serialised so the room sees them in processing order.
type Router struct {
	store    Store
	bus      pubsub.Bus
	notifier Notifier
	presence Presence
	log      *slog.Logger
	validate *validator.Validate
	locks    *roomLocks
	now      func() time.Time
}

func NewRouter(store Store, bus pubsub.Bus, notifier Notifier, presence Presence, log *slog.Logger) *Router {
	return &Router{
		store:    store,
		bus:      bus,
		notifier: notifier,
		presence: presence,
		log:      log,
		validate: validator.New(),
		locks:    newRoomLocks(),
		now:      time.Now,
	}
}

func (r *Router) check(p any) error {
	if err := r.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// participant loads the conversation and checks that id is its owner or an
// admin.
func (r *Router) participant(ctx context.Context, id identity.Identity, conversationID string) (*Conversation, error) {
	conv, err := r.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if !id.IsAdmin() && conv.OwnerID != id.UserID {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// CanJoin reports whether id may subscribe to the conversation's room.
func (r *Router) CanJoin(ctx context.Context, id identity.Identity, conversationID string) error {
	_, err := r.participant(ctx, id, conversationID)
	return err
}

// Send persists a message and broadcasts it to the room. Blank text is
// ignored without error.
func (r *Router) Send(ctx context.Context, id identity.Identity, p events.Send) (*Message, error) {
	if err := r.check(p); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Message)
	if text == "" {
		return nil, nil
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.lock(conv.ID)
	now := r.now().UTC()
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderIsAdmin:  id.IsAdmin(),
		SenderID:       id.UserID,
		Message:        text,
		Status:         StatusSent,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.store.CreateMessage(ctx, msg); err != nil {
		unlock()
		return nil, fmt.Errorf("save message: %w", err)
	}
	err = r.publish(ctx, pubsub.RoomTopic(conv.ID), events.ReceiveMessage, msg)
	unlock()
	if err != nil {
		return nil, err
	}

	r.afterSend(ctx, id, conv, msg)
	return msg, nil
}

// afterSend notifies the other side of the conversation and pushes its
// unread count. Failures are logged; the message is already delivered.
func (r *Router) afterSend(ctx context.Context, sender identity.Identity, conv *Conversation, msg *Message) {
	data := notification.Data{
		"name":            sender.DisplayName,
		"subject":         conv.Subject,
		"message":         msg.Message,
		"conversation_id": conv.ID,
	}

	recipientID := conv.OwnerID
	recipientIsAdmin := false
	if !sender.IsAdmin() {
		recipientID = r.notifier.Admin().UserID
		recipientIsAdmin = true
	}

	if !r.presence.InRoom(conv.ID, recipientID) {
		req := notification.Request{Type: notification.TypeLiveChatMessage, Data: data}
		var err error
		if recipientIsAdmin {
			_, err = r.notifier.NotifyAdmin(ctx, req)
		} else {
			req.RecipientID = recipientID
			_, err = r.notifier.CreateAndEmit(ctx, req)
		}
		if err != nil {
			r.log.Warn("Chat notification failed", "conversation_id", conv.ID, "recipient_id", recipientID, "error", err)
		}
	}

	if r.presence.IsOnline(recipientID) {
		if err := r.pushUnread(ctx, conv.ID, recipientID, recipientIsAdmin); err != nil {
			r.log.Warn("Unread count not pushed", "conversation_id", conv.ID, "recipient_id", recipientID, "error", err)
		}
	}
}

// Edit replaces the text of the caller's own message.
func (r *Router) Edit(ctx context.Context, id identity.Identity, p events.Edit) (*Message, error) {
	if err := r.check(p); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Message)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.lock(conv.ID)
	defer unlock()

	msg, err := r.liveMessage(ctx, conv.ID, p.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != id.UserID {
		return nil, ErrNotMessageOwner
	}
	msg.Message = text
	msg.Status = StatusEdited
	msg.UpdatedAt = r.now().UTC()
	if err := r.store.UpdateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if err := r.publish(ctx, pubsub.RoomTopic(conv.ID), events.MessageEdited, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Delete soft-deletes a message. Admins may delete any message.
func (r *Router) Delete(ctx context.Context, id identity.Identity, p events.Delete) error {
	if err := r.check(p); err != nil {
		return err
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return err
	}

	unlock := r.locks.lock(conv.ID)
	defer unlock()

	msg, err := r.liveMessage(ctx, conv.ID, p.MessageID)
	if err != nil {
		return err
	}
	if msg.SenderID != id.UserID && !id.IsAdmin() {
		return ErrNotMessageOwner
	}
	msg.Message = ""
	msg.Status = StatusDeleted
	msg.UpdatedAt = r.now().UTC()
	if err := r.store.UpdateMessage(ctx, msg); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return r.publish(ctx, pubsub.RoomTopic(conv.ID), events.MessageDeleted, MessageRef{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
	})
}

func (r *Router) liveMessage(ctx context.Context, conversationID, messageID string) (*Message, error) {
	msg, err := r.store.GetMessage(ctx, conversationID, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if msg.Status == StatusDeleted {
		return nil, fmt.Errorf("load message: %w", ErrNotFound)
	}
	return msg, nil
}

// Refresh pushes the full ordered message list to the room.
func (r *Router) Refresh(ctx context.Context, id identity.Identity, p events.Room) error {
	if err := r.check(p); err != nil {
		return err
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return err
	}

	unlock := r.locks.lock(conv.ID)
	defer unlock()

	msgs, err := r.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return r.publish(ctx, pubsub.RoomTopic(conv.ID), events.MessagesRefreshed, MessageBatch{
		ConversationID: conv.ID,
		Messages:       msgs,
	})
}

// Messages returns the conversation history for the REST fallback.
func (r *Router) Messages(ctx context.Context, id identity.Identity, conversationID string) ([]Message, error) {
	conv, err := r.participant(ctx, id, conversationID)
	if err != nil {
		return nil, err
	}
	return r.store.ListMessages(ctx, conv.ID)
}

// MarkRead records the read position and sends the fresh unread count to
// the caller's personal channel.
func (r *Router) MarkRead(ctx context.Context, id identity.Identity, p events.Room) error {
	if err := r.check(p); err != nil {
		return err
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return err
	}
	if err := r.store.MarkRead(ctx, conv.ID, id.UserID, r.now().UTC()); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return r.pushUnread(ctx, conv.ID, id.UserID, id.IsAdmin())
}

func (r *Router) pushUnread(ctx context.Context, conversationID, userID string, isAdmin bool) error {
	n, err := r.store.CountUnread(ctx, conversationID, userID, isAdmin)
	if err != nil {
		return fmt.Errorf("count unread: %w", err)
	}
	return r.publish(ctx, pubsub.UserTopic(userID), events.UnreadCount, Unread{
		ConversationID: conversationID,
		Unread:         n,
	})
}

// CreateConversation opens a support conversation owned by the caller and
// tells the admin about it.
func (r *Router) CreateConversation(ctx context.Context, id identity.Identity, p events.NewConversation) (*Conversation, error) {
	p.Subject = strings.TrimSpace(p.Subject)
	if err := r.check(p); err != nil {
		return nil, err
	}
	if id.Role != identity.RoleUser {
		return nil, ErrOwnerMustBeUser
	}

	now := r.now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Subject:   p.Subject,
		OwnerID:   id.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	if err := r.publish(ctx, pubsub.UserTopic(id.UserID), events.ConversationCreated, conv); err != nil {
		r.log.Warn("Conversation created but not pushed", "conversation_id", conv.ID, "error", err)
	}

	if _, err := r.notifier.NotifyAdmin(ctx, notification.Request{
		ShouldSendEmail: true,
		Type:            notification.TypeLiveChatMessage,
		EventKey:        notification.EventCreated,
		Data: notification.Data{
			"name":            id.DisplayName,
			"subject":         conv.Subject,
			"conversation_id": conv.ID,
			"created_at":      conv.CreatedAt,
		},
	}); err != nil {
		r.log.Warn("Admin not notified of new conversation", "conversation_id", conv.ID, "error", err)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, or all of them for
// an admin.
func (r *Router) ListConversations(ctx context.Context, id identity.Identity) ([]Conversation, error) {
	owner := id.UserID
	if id.IsAdmin() {
		owner = ""
	}
	return r.store.ListConversations(ctx, owner)
}

// DeleteConversation removes the conversation and its messages and tells
// the room.
func (r *Router) DeleteConversation(ctx context.Context, id identity.Identity, p events.Room) error {
	if err := r.check(p); err != nil {
		return err
	}
	conv, err := r.participant(ctx, id, p.ConversationID)
	if err != nil {
		return err
	}

	unlock := r.locks.lock(conv.ID)
	defer unlock()

	if err := r.store.DeleteConversation(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return r.publish(ctx, pubsub.RoomTopic(conv.ID), events.ConversationDeleted, ConversationRef{ConversationID: conv.ID})
}

func (r *Router) publish(ctx context.Context, topic, event string, data any) error {
	payload, err := events.Encode(event, data)
	if err != nil {
		return err
	}
	if err := r.bus.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// IsValidation reports whether err was caused by the caller's input rather
// than by storage or transport.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrOwnerMustBeUser) ||
		errors.Is(err, ErrNotMessageOwner) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrNotFound)
}
