package ws

import (
	"context"
	"log/slog"
	"sync"

	"iptv-live/internal/identity"
	"iptv-live/internal/presence"
	"iptv-live/internal/pubsub"
	"iptv-live/pkg/events"
)

type roomUsers struct {
	ConversationID string              `json:"conversation_id"`
	Users          []identity.Identity `json:"users"`
}

// ConnectionManager is the process-wide connection state: the hub, room
// presence and the online map. Presence is local to the instance, so
// presence events are delivered straight to the local hub rather than
// through the bus.
type ConnectionManager struct {
	// mu orders presence changes with their broadcasts, so the last update a
	// client receives matches the current state.
	mu     sync.Mutex
	hub    *Hub
	rooms  *presence.Registry
	online *presence.Online
	log    *slog.Logger
	cancel context.CancelFunc
}

func NewConnectionManager(hub *Hub, log *slog.Logger) *ConnectionManager {
	return &ConnectionManager{
		hub:    hub,
		rooms:  presence.NewRegistry(),
		online: presence.NewOnline(),
		log:    log,
	}
}

// Start runs the hub until ctx is cancelled or Close is called.
func (m *ConnectionManager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	go m.hub.Run(ctx)
}

// Close stops the hub, closing every client's queue, and waits for it.
func (m *ConnectionManager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.hub.Done()
}

// Connect registers the client and its personal topics, then broadcasts the
// online list. Admins hear about a customer's first connection on the
// admins topic.
func (m *ConnectionManager) Connect(c *Client) {
	id := c.identity
	m.hub.Register(c)
	m.hub.Subscribe(c, pubsub.TopicAll)
	m.hub.Subscribe(c, pubsub.UserTopic(id.UserID))
	if id.IsAdmin() {
		m.hub.Subscribe(c, pubsub.TopicAdmins)
	}

	m.mu.Lock()
	list, first := m.online.Add(id)
	m.broadcast(pubsub.TopicAll, events.OnlineUsersUpdate, list)
	if first && !id.IsAdmin() {
		m.broadcast(pubsub.TopicAdmins, events.UserOnline, id)
	}
	m.mu.Unlock()
	m.log.Info("Client connected", "connection_id", id.ConnectionID, "user_id", id.UserID, "role", id.Role)
}

// Disconnect leaves every room, updates the online list and unregisters.
func (m *ConnectionManager) Disconnect(c *Client) {
	id := c.identity
	m.hub.Unregister(c)

	m.mu.Lock()
	for room, members := range m.rooms.LeaveAll(id) {
		m.broadcast(pubsub.RoomTopic(room), events.RoomUsersUpdate, roomUsers{ConversationID: room, Users: members})
	}
	list, last := m.online.Remove(id)
	m.broadcast(pubsub.TopicAll, events.OnlineUsersUpdate, list)
	if last && !id.IsAdmin() {
		m.broadcast(pubsub.TopicAdmins, events.UserOffline, id)
	}
	m.mu.Unlock()
	m.log.Info("Client disconnected", "connection_id", id.ConnectionID, "user_id", id.UserID)
}

// JoinRoom subscribes the client before broadcasting the new membership so
// the joiner receives it too.
func (m *ConnectionManager) JoinRoom(c *Client, conversationID string) []identity.Identity {
	m.hub.Subscribe(c, pubsub.RoomTopic(conversationID))

	m.mu.Lock()
	defer m.mu.Unlock()
	members := m.rooms.Join(conversationID, c.identity)
	m.broadcast(pubsub.RoomTopic(conversationID), events.RoomUsersUpdate, roomUsers{ConversationID: conversationID, Users: members})
	return members
}

func (m *ConnectionManager) LeaveRoom(c *Client, conversationID string) {
	m.hub.Unsubscribe(c, pubsub.RoomTopic(conversationID))

	m.mu.Lock()
	defer m.mu.Unlock()
	members, changed := m.rooms.Leave(conversationID, c.identity)
	if !changed {
		return
	}
	m.broadcast(pubsub.RoomTopic(conversationID), events.RoomUsersUpdate, roomUsers{ConversationID: conversationID, Users: members})
}

func (m *ConnectionManager) InRoom(conversationID, userID string) bool {
	return m.rooms.Contains(conversationID, userID)
}

func (m *ConnectionManager) IsOnline(userID string) bool {
	return m.online.IsOnline(userID)
}

func (m *ConnectionManager) OnlineUsers() []identity.Identity {
	return m.online.List()
}

// Reply sends an event to one connection only.
func (m *ConnectionManager) Reply(c *Client, event string, data any) {
	payload, err := events.Encode(event, data)
	if err != nil {
		m.log.Error("Could not encode reply", "event", event, "error", err)
		return
	}
	m.hub.SendTo(c, payload)
}

func (m *ConnectionManager) broadcast(topic, event string, data any) {
	payload, err := events.Encode(event, data)
	if err != nil {
		m.log.Error("Could not encode broadcast", "event", event, "error", err)
		return
	}
	m.hub.Deliver(topic, payload)
}
