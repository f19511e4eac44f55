package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePayload_Object(t *testing.T) {
	req := require.New(t)

	p := ParsePayload(json.RawMessage(`{"notifications":[{"id":"n1","is_read":false},{"title":"no id"},"junk"],"unreadCount":1,"total":7}`))

	req.Equal(PayloadObject, p.Kind)
	req.Len(p.Notifications, 1)
	req.Equal("n1", p.Notifications[0].ID)
	req.Equal(1, p.UnreadCount)
	req.Equal(7, p.Total)
}

func TestParsePayload_BareArray(t *testing.T) {
	req := require.New(t)

	p := ParsePayload(json.RawMessage(` [{"id":"n1"},{"id":"n2","is_read":true}] `))

	req.Equal(PayloadArray, p.Kind)
	req.Len(p.Notifications, 2)
	req.Equal(0, p.UnreadCount)
	req.Equal(2, p.Total)
}

func TestParsePayload_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", "  ", `"text"`, "42", `{"notifications":null}`, `{"notifications":{}}`, `[`, `{bad`} {
		p := ParsePayload(json.RawMessage(raw))
		require.Equal(t, PayloadEmpty, p.Kind, raw)
		require.NotNil(t, p.Notifications, raw)
		require.Empty(t, p.Notifications, raw)
	}
}
