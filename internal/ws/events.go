package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"iptv-live/internal/chat"
	"iptv-live/internal/notification"
	"iptv-live/pkg/events"

	"github.com/go-playground/validator/v10"
)

var errUnknownEvent = errors.New("unknown event")

// NotificationService is the part of the dispatcher reachable from a socket.
type NotificationService interface {
	GetAllNotifications(ctx context.Context, userID string) (*notification.List, error)
	MarkRead(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
	ClearAll(ctx context.Context, userID string) error
}

// EventHandler routes decoded socket events to the chat router and the
// notification dispatcher. Failures go back to the sender only.
type EventHandler struct {
	manager       *ConnectionManager
	router        *chat.Router
	notifications NotificationService
	validate      *validator.Validate
	log           *slog.Logger
}

func NewEventHandler(m *ConnectionManager, router *chat.Router, notifications NotificationService, log *slog.Logger) *EventHandler {
	return &EventHandler{
		manager:       m,
		router:        router,
		notifications: notifications,
		validate:      validator.New(),
		log:           log,
	}
}

func (h *EventHandler) Handle(ctx context.Context, c *Client, frame []byte) {
	env, err := events.Decode(frame)
	if err != nil {
		h.fail(c, "", fmt.Errorf("%w: %v", chat.ErrInvalidPayload, err))
		return
	}
	if err := h.dispatch(ctx, c, env); err != nil {
		h.fail(c, env.Event, err)
	}
}

func (h *EventHandler) dispatch(ctx context.Context, c *Client, env events.Envelope) error {
	id := c.identity

	switch env.Event {
	case events.JoinRoom:
		var p events.Room
		if err := h.decode(env, &p); err != nil {
			return err
		}
		if err := h.router.CanJoin(ctx, id, p.ConversationID); err != nil {
			return err
		}
		h.manager.JoinRoom(c, p.ConversationID)
		return nil

	case events.LeaveRoom:
		var p events.Room
		if err := h.decode(env, &p); err != nil {
			return err
		}
		h.manager.LeaveRoom(c, p.ConversationID)
		return nil

	case events.SendMessage:
		var p events.Send
		if err := h.decode(env, &p); err != nil {
			return err
		}
		_, err := h.router.Send(ctx, id, p)
		return err

	case events.EditMessage:
		var p events.Edit
		if err := h.decode(env, &p); err != nil {
			return err
		}
		_, err := h.router.Edit(ctx, id, p)
		return err

	case events.DeleteMessage:
		var p events.Delete
		if err := h.decode(env, &p); err != nil {
			return err
		}
		return h.router.Delete(ctx, id, p)

	case events.RefreshMessages:
		var p events.Room
		if err := h.decode(env, &p); err != nil {
			return err
		}
		return h.router.Refresh(ctx, id, p)

	case events.MarkRead:
		var p events.Room
		if err := h.decode(env, &p); err != nil {
			return err
		}
		return h.router.MarkRead(ctx, id, p)

	case events.CreateConversation:
		var p events.NewConversation
		if err := h.decode(env, &p); err != nil {
			return err
		}
		_, err := h.router.CreateConversation(ctx, id, p)
		return err

	case events.DeleteConversation:
		var p events.Room
		if err := h.decode(env, &p); err != nil {
			return err
		}
		return h.router.DeleteConversation(ctx, id, p)

	case events.FetchNotifications:
		// The payload's user_id is informational; a connection only ever
		// reads its own notifications.
		list, err := h.notifications.GetAllNotifications(ctx, id.UserID)
		if err != nil {
			return err
		}
		h.manager.Reply(c, events.NotificationsList, list)
		return nil

	case events.MarkNotificationRead:
		var p events.NotificationRef
		if err := h.decodeValid(env, &p); err != nil {
			return err
		}
		return h.notifications.MarkRead(ctx, id.UserID, p.NotificationID)

	case events.DeleteNotification:
		var p events.NotificationRef
		if err := h.decodeValid(env, &p); err != nil {
			return err
		}
		return h.notifications.Delete(ctx, id.UserID, p.NotificationID)

	case events.ClearNotifications:
		return h.notifications.ClearAll(ctx, id.UserID)

	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, env.Event)
	}
}

func (h *EventHandler) decode(env events.Envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrInvalidPayload, err)
	}
	return nil
}

func (h *EventHandler) decodeValid(env events.Envelope, v any) error {
	if err := h.decode(env, v); err != nil {
		return err
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrInvalidPayload, err)
	}
	return nil
}

func (h *EventHandler) fail(c *Client, event string, err error) {
	if chat.IsValidation(err) || errors.Is(err, errUnknownEvent) || errors.Is(err, notification.ErrNotFound) {
		h.log.Debug("Rejected socket event", "event", event, "user_id", c.identity.UserID, "error", err)
	} else {
		h.log.Error("Socket event failed", "event", event, "user_id", c.identity.UserID, "error", err)
	}
	h.manager.Reply(c, events.Error, events.ErrorPayload{Event: event, Message: UserMessage(err)})
}

// UserMessage turns an error into text that is safe to show to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "Message cannot be empty."
	case errors.Is(err, chat.ErrOwnerMustBeUser):
		return "Only customers can start a conversation."
	case errors.Is(err, chat.ErrNotMessageOwner):
		return "You can only change your own messages."
	case errors.Is(err, chat.ErrNotParticipant):
		return "You are not part of this conversation."
	case errors.Is(err, chat.ErrNotFound):
		return "Conversation or message not found."
	case errors.Is(err, notification.ErrNotFound):
		return "Notification not found."
	case errors.Is(err, chat.ErrInvalidPayload):
		return "Invalid request."
	case errors.Is(err, errUnknownEvent):
		return "Unknown event."
	default:
		return "Something went wrong. Please try again."
	}
}
