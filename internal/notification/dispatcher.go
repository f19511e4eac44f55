package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iptv-live/internal/email"
	"iptv-live/internal/pubsub"
	"iptv-live/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultEmailTimeout = 10 * time.Second

// Recipient is a fixed admin id/email pair.
type Recipient struct {
	UserID string
	Email  string
}

// Request describes one notification to create and deliver.
type Request struct {
	RecipientID      string
	RecipientEmail   string
	ShouldSendEmail  bool
	IsAdminRecipient bool
	Type             Type
	EventKey         string
	Data             Data
}

// BusinessEvent is raised by the rest of the application (registration,
// trials, subscriptions, payments). The admin is always notified and mailed;
// the user is notified when UserID is set and mailed when they opted in.
type BusinessEvent struct {
	Type           Type   `json:"type" validate:"required"`
	EventKey       string `json:"event_key"`
	UserID         string `json:"user_id"`
	UserEmail      string `json:"user_email"`
	UserWantsEmail bool   `json:"user_wants_email"`
	Data           Data   `json:"data"`
}

type Dispatcher struct {
	store        Store
	bus          pubsub.Bus
	mailer       email.Sender
	admin        Recipient
	log          *slog.Logger
	emailTimeout time.Duration
	appURL       string
	now          func() time.Time
}

type Option func(*Dispatcher)

func WithEmailTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.emailTimeout = d
		}
	}
}

// WithAppURL makes notification links absolute in emails.
func WithAppURL(u string) Option {
	return func(disp *Dispatcher) { disp.appURL = strings.TrimRight(u, "/") }
}

func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) { disp.now = now }
}

// NewDispatcher fails when the admin recipient is incomplete: without it the
// subsystem cannot deliver admin notifications and must not start.
func NewDispatcher(store Store, bus pubsub.Bus, mailer email.Sender, admin Recipient, log *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if strings.TrimSpace(admin.UserID) == "" || strings.TrimSpace(admin.Email) == "" {
		return nil, ErrNoAdminRecipient
	}
	d := &Dispatcher{
		store:        store,
		bus:          bus,
		mailer:       mailer,
		admin:        admin,
		log:          log,
		emailTimeout: defaultEmailTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Dispatcher) Admin() Recipient { return d.admin }

// CreateAndEmit renders, stores and pushes one notification, then sends the
// email if asked. The stored notification is the source of truth: a failed
// push or email is logged and does not undo it.
func (d *Dispatcher) CreateAndEmit(ctx context.Context, req Request) (*Notification, error) {
	if req.RecipientID == "" {
		return nil, ErrMissingRecipient
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	audience := AudienceUser
	if req.IsAdminRecipient {
		audience = AudienceAdmin
	}
	content := GetTemplate(audience, req.Type, req.EventKey, req.Data)

	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    req.RecipientID,
		Title:     content.Title,
		Body:      content.Body,
		Type:      req.Type,
		IsRead:    false,
		CreatedAt: d.now().UTC(),
	}
	if content.Link != "" {
		link := content.Link
		n.Link = &link
	}

	if err := d.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	if err := d.emit(ctx, n.UserID, events.NotificationReceived, n); err != nil {
		d.log.Warn("Notification stored but not pushed", "notification_id", n.ID, "error", err)
	}

	if req.ShouldSendEmail {
		d.sendEmail(ctx, req, content)
	}
	return n, nil
}

// NotifyAdmin sends req to the configured admin recipient.
func (d *Dispatcher) NotifyAdmin(ctx context.Context, req Request) (*Notification, error) {
	req.RecipientID = d.admin.UserID
	req.RecipientEmail = d.admin.Email
	req.IsAdminRecipient = true
	return d.CreateAndEmit(ctx, req)
}

func (d *Dispatcher) HandleBusinessEvent(ctx context.Context, evt BusinessEvent) error {
	if !evt.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, evt.Type)
	}
	if _, err := d.NotifyAdmin(ctx, Request{
		ShouldSendEmail: true,
		Type:            evt.Type,
		EventKey:        evt.EventKey,
		Data:            evt.Data,
	}); err != nil {
		return err
	}
	if evt.UserID == "" {
		return nil
	}
	_, err := d.CreateAndEmit(ctx, Request{
		RecipientID:     evt.UserID,
		RecipientEmail:  evt.UserEmail,
		ShouldSendEmail: evt.UserWantsEmail && evt.UserEmail != "",
		Type:            evt.Type,
		EventKey:        evt.EventKey,
		Data:            evt.Data,
	})
	return err
}

// GetAllNotifications reads the list, the unread count and the total
// concurrently.
func (d *Dispatcher) GetAllNotifications(ctx context.Context, userID string) (*List, error) {
	var list List
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := d.store.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("list notifications: %w", err)
		}
		list.Notifications = items
		return nil
	})
	g.Go(func() error {
		n, err := d.store.CountUnread(gctx, userID)
		if err != nil {
			return fmt.Errorf("count unread notifications: %w", err)
		}
		list.UnreadCount = n
		return nil
	})
	g.Go(func() error {
		n, err := d.store.Count(gctx, userID)
		if err != nil {
			return fmt.Errorf("count notifications: %w", err)
		}
		list.Total = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if list.Notifications == nil {
		list.Notifications = []Notification{}
	}
	return &list, nil
}

type readAck struct {
	NotificationID string `json:"notification_id,omitempty"`
	UnreadCount    int    `json:"unreadCount"`
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	if err := d.store.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return d.ack(ctx, userID, events.NotificationRead, id)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) error {
	if err := d.store.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return d.ack(ctx, userID, events.NotificationRead, "")
}

func (d *Dispatcher) Delete(ctx context.Context, userID, id string) error {
	if err := d.store.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return d.ack(ctx, userID, events.NotificationDeleted, id)
}

func (d *Dispatcher) ClearAll(ctx context.Context, userID string) error {
	if err := d.store.DeleteAll(ctx, userID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return d.ack(ctx, userID, events.NotificationsCleared, "")
}

// ack pushes the mutation with a fresh unread count so every open tab of the
// user converges on the stored state.
func (d *Dispatcher) ack(ctx context.Context, userID, event, id string) error {
	unread, err := d.store.CountUnread(ctx, userID)
	if err != nil {
		return fmt.Errorf("count unread notifications: %w", err)
	}
	if err := d.emit(ctx, userID, event, readAck{NotificationID: id, UnreadCount: unread}); err != nil {
		d.log.Warn("Notification acknowledgement not pushed", "user_id", userID, "event", event, "error", err)
	}
	return nil
}

func (d *Dispatcher) emit(ctx context.Context, userID, event string, data any) error {
	payload, err := events.Encode(event, data)
	if err != nil {
		return err
	}
	return d.bus.Publish(ctx, pubsub.UserTopic(userID), payload)
}

func (d *Dispatcher) sendEmail(ctx context.Context, req Request, content Content) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.emailTimeout)
	defer cancel()

	body := email.TextToHTML(content.Body)
	if d.appURL != "" && content.Link != "" {
		body += email.ActionLink(d.appURL+content.Link, "Open in your dashboard")
	}
	msg := email.Message{
		Subject:          content.Title,
		Title:            content.Title,
		ContentHTML:      body,
		IncludeSignature: true,
	}

	var err error
	if req.IsAdminRecipient {
		err = d.mailer.SendEmailToAdmin(ctx, msg)
	} else if req.RecipientEmail == "" {
		d.log.Debug("Skipping user email, no address", "user_id", req.RecipientID)
		return
	} else {
		err = d.mailer.SendEmailToUser(ctx, req.RecipientEmail, msg)
	}
	if err != nil {
		d.log.Error("Email delivery failed", "recipient_id", req.RecipientID, "type", req.Type, "error", err)
	}
}
