package identity

import (
	"net/url"
	"testing"
	"time"

	"iptv-live/internal/auth"

	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultsToGuest(t *testing.T) {
	req := require.New(t)
	r := NewResolver(nil)

	id := r.Resolve("c1", Handshake{UserID: "u-1"})

	req.Equal(RoleGuest, id.Role)
	req.Equal("guest-c1", id.UserID)
	req.Equal("c1", id.ConnectionID)
}

func TestResolve_UserWithoutIDBecomesGuest(t *testing.T) {
	req := require.New(t)

	id := NewResolver(nil).Resolve("c2", Handshake{Role: "user", Name: "Bob"})

	req.Equal(RoleGuest, id.Role)
	req.Equal("guest-c2", id.UserID)
	req.Equal("Bob", id.DisplayName)
}

func TestResolve_Admin(t *testing.T) {
	req := require.New(t)

	id := NewResolver(nil).Resolve("c3", Handshake{UserID: "a-1", Role: "ADMIN"})

	req.True(id.IsAdmin())
	req.Equal("a-1", id.UserID)
	req.Equal("a-1", id.DisplayName)
}

func TestResolve_TokenOverridesQuery(t *testing.T) {
	req := require.New(t)
	a := auth.NewAuthenticator("secret", "test", time.Hour)
	token, err := a.GenerateToken("u-9", "user", "Carol")
	req.NoError(err)

	id := NewResolver(a).Resolve("c4", Handshake{UserID: "a-1", Role: "admin", Token: token})

	req.Equal(RoleUser, id.Role)
	req.Equal("u-9", id.UserID)
	req.Equal("Carol", id.DisplayName)
}

func TestResolve_InvalidTokenDowngradesToGuest(t *testing.T) {
	req := require.New(t)
	a := auth.NewAuthenticator("secret", "test", time.Hour)

	id := NewResolver(a).Resolve("c5", Handshake{UserID: "a-1", Role: "admin", Token: "garbage"})

	req.True(id.IsGuest())
	req.Equal("guest-c5", id.UserID)
}

func TestHandshakeFromQuery(t *testing.T) {
	req := require.New(t)
	q := url.Values{}
	q.Set("user_id", " u-1 ")
	q.Set("role", "user")
	q.Set("name", "Dana")

	h := HandshakeFromQuery(q)

	req.Equal(Handshake{UserID: "u-1", Role: "user", Name: "Dana"}, h)
}
