package notification

import (
	"errors"
	"time"
)

type Type string

const (
	TypeNewUserRegistration Type = "newUserRegistration"
	TypeFreeTrial           Type = "freeTrial"
	TypeSubscription        Type = "subscription"
	TypePayment             Type = "payment"
	TypeLiveChatMessage     Type = "liveChatMessage"
	TypeBubbleChatMessage   Type = "bubbleChatMessage"
	TypeError               Type = "error"
)

// EventCreated selects the lifecycle template, e.g. freeTrial_created.
const EventCreated = "created"

func (t Type) Valid() bool {
	switch t {
	case TypeNewUserRegistration, TypeFreeTrial, TypeSubscription, TypePayment,
		TypeLiveChatMessage, TypeBubbleChatMessage, TypeError:
		return true
	}
	return false
}

type Audience string

const (
	AudienceAdmin Audience = "admin"
	AudienceUser  Audience = "user"
)

// Data is the loosely typed template input. Values may be anything; the
// template engine coerces them before interpolation.
type Data map[string]any

type Content struct {
	Title string
	Body  string
	Link  string
}

// Notification is immutable once stored, apart from IsRead.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      *string   `json:"link"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// List is the aggregate returned on a full refresh.
type List struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
	Total         int            `json:"total"`
}

var (
	ErrNotFound         = errors.New("notification not found")
	ErrNoAdminRecipient = errors.New("admin recipient id and email are required")
	ErrUnknownType      = errors.New("unknown notification type")
	ErrMissingRecipient = errors.New("notification recipient is required")
)
