package identity

import (
	"net/url"
	"strings"

	"iptv-live/internal/auth"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

const guestPrefix = "guest-"

// Identity is attached to a connection once, at handshake, and never changes.
type Identity struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	Role         Role   `json:"role"`
	DisplayName  string `json:"name"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func (i Identity) IsGuest() bool { return i.Role == RoleGuest }

// Handshake holds the raw query parameters sent when the socket opens.
type Handshake struct {
	UserID string
	Role   string
	Name   string
	Token  string
}

func HandshakeFromQuery(q url.Values) Handshake {
	return Handshake{
		UserID: strings.TrimSpace(q.Get("user_id")),
		Role:   strings.TrimSpace(q.Get("role")),
		Name:   strings.TrimSpace(q.Get("name")),
		Token:  strings.TrimSpace(q.Get("token")),
	}
}

type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

type Resolver struct {
	validator TokenValidator
}

// NewResolver accepts a nil validator; tokens are then ignored and only the
// query parameters are used.
func NewResolver(validator TokenValidator) *Resolver {
	return &Resolver{validator: validator}
}

func (r *Resolver) Resolve(connectionID string, h Handshake) Identity {
	if h.Token != "" && r.validator != nil {
		claims, err := r.validator.ValidateToken(h.Token)
		if err != nil {
			return guest(connectionID, h.Name)
		}
		h = Handshake{UserID: claims.UserID, Role: claims.Role, Name: claims.Name}
	}

	role := ParseRole(h.Role)
	if role == RoleGuest || h.UserID == "" {
		return guest(connectionID, h.Name)
	}

	name := h.Name
	if name == "" {
		name = h.UserID
	}
	return Identity{
		ConnectionID: connectionID,
		UserID:       h.UserID,
		Role:         role,
		DisplayName:  name,
	}
}

func ParseRole(s string) Role {
	switch Role(strings.ToLower(s)) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return RoleGuest
	}
}

func guest(connectionID, name string) Identity {
	id := guestPrefix + connectionID
	if name == "" {
		name = "Guest"
	}
	return Identity{
		ConnectionID: connectionID,
		UserID:       id,
		Role:         RoleGuest,
		DisplayName:  name,
	}
}
