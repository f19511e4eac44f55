package ws

import (
	"net/http"

	"iptv-live/internal/identity"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	manager  *ConnectionManager
	events   *EventHandler
	resolver *identity.Resolver
}

func NewHandler(m *ConnectionManager, events *EventHandler, resolver *identity.Resolver) *Handler {
	return &Handler{manager: m, events: events, resolver: resolver}
}

// ServeWs upgrades the request and resolves the connection's identity from
// the handshake query (user_id, role, name, token).
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id := h.resolver.Resolve(uuid.NewString(), identity.HandshakeFromQuery(r.URL.Query()))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.manager.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.manager, h.events, conn, id)
	h.manager.Connect(client)

	go client.writePump()
	go client.readPump()
}
