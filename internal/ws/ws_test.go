package ws_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"iptv-live/internal/chat"
	"iptv-live/internal/email"
	"iptv-live/internal/identity"
	"iptv-live/internal/notification"
	"iptv-live/internal/pubsub"
	"iptv-live/internal/ws"
	"iptv-live/pkg/events"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	hub := ws.NewHub(log)
	manager := ws.NewConnectionManager(hub, log)
	manager.Start(context.Background())
	t.Cleanup(manager.Close)

	bus := pubsub.NewLocalBus(hub.Deliver)
	dispatcher, err := notification.NewDispatcher(
		notification.NewMemoryStore(), bus, email.NewLogSender("admin@example.com", log),
		notification.Recipient{UserID: "admin-1", Email: "admin@example.com"}, log,
	)
	require.NoError(t, err)
	router := chat.NewRouter(chat.NewMemoryStore(), bus, dispatcher, manager, log)
	handler := ws.NewHandler(manager, ws.NewEventHandler(manager, router, dispatcher, log), identity.NewResolver(nil))

	srv := httptest.NewServer(http.HandlerFunc(handler.ServeWs))
	t.Cleanup(srv.Close)
	return srv
}

type peer struct {
	t      *testing.T
	conn   *websocket.Conn
	frames chan events.Envelope
}

func dial(t *testing.T, srv *httptest.Server, userID, role, name string) *peer {
	t.Helper()
	q := url.Values{}
	if userID != "" {
		q.Set("user_id", userID)
	}
	q.Set("role", role)
	q.Set("name", name)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	p := &peer{t: t, conn: conn, frames: make(chan events.Envelope, 256)}
	go func() {
		defer close(p.frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range bytes.Split(data, []byte{'\n'}) {
				if env, err := events.Decode(line); err == nil {
					p.frames <- env
				}
			}
		}
	}()
	return p
}

func (p *peer) emit(event string, data any) {
	p.t.Helper()
	frame, err := events.Encode(event, data)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, frame))
}

// expect skips other events until the named one arrives.
func (p *peer) expect(event string) events.Envelope {
	p.t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case env, ok := <-p.frames:
			if !ok {
				p.t.Fatalf("connection closed while waiting for %s", event)
			}
			if env.Event == event {
				return env
			}
		case <-deadline:
			p.t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func (p *peer) expectNone(event string, within time.Duration) {
	p.t.Helper()
	deadline := time.After(within)
	for {
		select {
		case env, ok := <-p.frames:
			if !ok {
				return
			}
			if env.Event == event {
				p.t.Fatalf("unexpected %s: %s", event, env.Data)
			}
		case <-deadline:
			return
		}
	}
}

func decode[T any](t *testing.T, env events.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type roomUsers struct {
	ConversationID string              `json:"conversation_id"`
	Users          []identity.Identity `json:"users"`
}

type readAck struct {
	NotificationID string `json:"notification_id"`
	UnreadCount    int    `json:"unreadCount"`
}

func openConversation(t *testing.T, p *peer, subject string) chat.Conversation {
	t.Helper()
	p.emit(events.CreateConversation, events.NewConversation{Subject: subject})
	return decode[chat.Conversation](t, p.expect(events.ConversationCreated))
}

func TestChatRoundTrip(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	conv := openConversation(t, alice, "No picture on HBO")
	req.Equal("u-alice", conv.OwnerID)

	support := dial(t, srv, "admin-1", "admin", "Support")

	alice.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	alice.expect(events.RoomUsersUpdate)
	support.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	users := decode[roomUsers](t, alice.expect(events.RoomUsersUpdate))
	req.Len(users.Users, 2)

	alice.emit(events.SendMessage, events.Send{ConversationID: conv.ID, Message: "Hello"})

	got := decode[chat.Message](t, support.expect(events.ReceiveMessage))
	req.Equal("Hello", got.Message)
	req.Equal("u-alice", got.SenderID)
	req.False(got.SenderIsAdmin)

	echo := decode[chat.Message](t, alice.expect(events.ReceiveMessage))
	req.Equal(got.ID, echo.ID)

	support.emit(events.SendMessage, events.Send{ConversationID: conv.ID, Message: "Hi Alice"})
	reply := decode[chat.Message](t, alice.expect(events.ReceiveMessage))
	req.True(reply.SenderIsAdmin)

	unread := decode[chat.Unread](t, alice.expect(events.UnreadCount))
	req.Equal(1, unread.Unread)
}

func TestRoomIsolation(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	bob := dial(t, srv, "u-bob", "user", "Bob")

	convA := openConversation(t, alice, "A")
	convB := openConversation(t, bob, "B")

	alice.emit(events.JoinRoom, events.Room{ConversationID: convA.ID})
	alice.expect(events.RoomUsersUpdate)
	bob.emit(events.JoinRoom, events.Room{ConversationID: convB.ID})
	bob.expect(events.RoomUsersUpdate)

	bob.emit(events.JoinRoom, events.Room{ConversationID: convA.ID})
	failure := decode[events.ErrorPayload](t, bob.expect(events.Error))
	req.Equal(events.JoinRoom, failure.Event)
	req.Equal("You are not part of this conversation.", failure.Message)

	alice.emit(events.SendMessage, events.Send{ConversationID: convA.ID, Message: "secret"})
	alice.expect(events.ReceiveMessage)
	bob.expectNone(events.ReceiveMessage, 200*time.Millisecond)
}

func TestJoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	conv := openConversation(t, alice, "Twice")

	for range 2 {
		alice.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
		users := decode[roomUsers](t, alice.expect(events.RoomUsersUpdate))
		req.Len(users.Users, 1)
		req.Equal("u-alice", users.Users[0].UserID)
	}
}

func TestEditThenRefresh(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	conv := openConversation(t, alice, "Typos")
	alice.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	alice.expect(events.RoomUsersUpdate)

	alice.emit(events.SendMessage, events.Send{ConversationID: conv.ID, Message: "helo"})
	sent := decode[chat.Message](t, alice.expect(events.ReceiveMessage))

	alice.emit(events.EditMessage, events.Edit{ConversationID: conv.ID, MessageID: sent.ID, Message: "hello"})
	edited := decode[chat.Message](t, alice.expect(events.MessageEdited))
	req.Equal(chat.StatusEdited, edited.Status)

	alice.emit(events.RefreshMessages, events.Room{ConversationID: conv.ID})
	batch := decode[chat.MessageBatch](t, alice.expect(events.MessagesRefreshed))
	req.Len(batch.Messages, 1)
	req.Equal("hello", batch.Messages[0].Message)
	req.Equal(chat.StatusEdited, batch.Messages[0].Status)
}

func TestEditRejectedForOtherSender(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	support := dial(t, srv, "admin-1", "admin", "Support")
	conv := openConversation(t, alice, "Ownership")
	alice.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	alice.expect(events.RoomUsersUpdate)

	alice.emit(events.SendMessage, events.Send{ConversationID: conv.ID, Message: "mine"})
	sent := decode[chat.Message](t, alice.expect(events.ReceiveMessage))

	support.emit(events.EditMessage, events.Edit{ConversationID: conv.ID, MessageID: sent.ID, Message: "hijack"})
	failure := decode[events.ErrorPayload](t, support.expect(events.Error))
	req.Equal("You can only change your own messages.", failure.Message)
	alice.expectNone(events.MessageEdited, 200*time.Millisecond)
}

func TestNotificationsOverSocket(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	support := dial(t, srv, "admin-1", "admin", "Support")
	alice := dial(t, srv, "u-alice", "user", "Alice")

	conv := openConversation(t, alice, "Activation")
	created := decode[notification.Notification](t, support.expect(events.NotificationReceived))
	req.Equal("💬 New Live Chat Conversation", created.Title)
	req.NotNil(created.Link)
	req.Equal("/admin/live-chat/"+conv.ID, *created.Link)

	support.emit(events.FetchNotifications, events.Fetch{UserID: "admin-1"})
	list := decode[notification.List](t, support.expect(events.NotificationsList))
	req.Len(list.Notifications, 1)
	req.Equal(1, list.UnreadCount)

	support.emit(events.MarkNotificationRead, events.NotificationRef{NotificationID: created.ID})
	ack := decode[readAck](t, support.expect(events.NotificationRead))
	req.Equal(created.ID, ack.NotificationID)
	req.Equal(0, ack.UnreadCount)

	support.emit(events.DeleteNotification, events.NotificationRef{NotificationID: "missing"})
	failure := decode[events.ErrorPayload](t, support.expect(events.Error))
	req.Equal("Notification not found.", failure.Message)
}

func TestOnlineUsersAndGuests(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	alice.expect(events.OnlineUsersUpdate)

	dial(t, srv, "", "", "")
	online := decode[[]identity.Identity](t, alice.expect(events.OnlineUsersUpdate))
	req.Len(online, 2)

	var guest identity.Identity
	for _, id := range online {
		if id.UserID != "u-alice" {
			guest = id
		}
	}
	req.Equal(identity.RoleGuest, guest.Role)
	req.True(strings.HasPrefix(guest.UserID, "guest-"))
	req.Equal("Guest", guest.DisplayName)
}

func TestGuestCannotOpenConversation(t *testing.T) {
	srv := newServer(t)
	visitor := dial(t, srv, "", "guest", "Visitor")

	visitor.emit(events.CreateConversation, events.NewConversation{Subject: "Hi"})
	failure := decode[events.ErrorPayload](t, visitor.expect(events.Error))

	require.Equal(t, events.CreateConversation, failure.Event)
	require.Equal(t, "Only customers can start a conversation.", failure.Message)
}

func TestMalformedAndUnknownEvents(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)
	alice := dial(t, srv, "u-alice", "user", "Alice")

	req.NoError(alice.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	failure := decode[events.ErrorPayload](t, alice.expect(events.Error))
	req.Equal("Invalid request.", failure.Message)

	alice.emit("dance", nil)
	failure = decode[events.ErrorPayload](t, alice.expect(events.Error))
	req.Equal("Unknown event.", failure.Message)

	alice.emit(events.SendMessage, events.Send{ConversationID: "", Message: "hi"})
	failure = decode[events.ErrorPayload](t, alice.expect(events.Error))
	req.Equal("Invalid request.", failure.Message)
}

func TestClosingOneTabKeepsUserInRoom(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	tab1 := dial(t, srv, "u-alice", "user", "Alice")
	tab2 := dial(t, srv, "u-alice", "user", "Alice")
	support := dial(t, srv, "admin-1", "admin", "Support")

	conv := openConversation(t, tab1, "Two tabs")
	tab1.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	tab1.expect(events.RoomUsersUpdate)
	tab2.emit(events.JoinRoom, events.Room{ConversationID: conv.ID})
	users := decode[roomUsers](t, tab1.expect(events.RoomUsersUpdate))
	req.Len(users.Users, 1)

	// An observer connecting now sees every later online change in order.
	watcher := dial(t, srv, "u-watch", "user", "Watcher")
	watcher.expect(events.OnlineUsersUpdate)

	// When the newest tab closes
	req.NoError(tab2.conn.Close())
	online := decode[[]identity.Identity](t, watcher.expect(events.OnlineUsersUpdate))
	req.Len(online, 3)

	// Then the remaining tab is still in the room and gets no notification
	tab1.expectNone(events.RoomUsersUpdate, 100*time.Millisecond)
	support.emit(events.SendMessage, events.Send{ConversationID: conv.ID, Message: "Still there?"})
	got := decode[chat.Message](t, tab1.expect(events.ReceiveMessage))
	req.Equal("Still there?", got.Message)
	tab1.expectNone(events.NotificationReceived, 300*time.Millisecond)
}

func TestAdminsHearCustomersComeAndGo(t *testing.T) {
	req := require.New(t)
	srv := newServer(t)

	support := dial(t, srv, "admin-1", "admin", "Support")
	support.expect(events.OnlineUsersUpdate)
	other := dial(t, srv, "admin-2", "admin", "Night shift")
	other.expect(events.OnlineUsersUpdate)

	alice := dial(t, srv, "u-alice", "user", "Alice")
	came := decode[identity.Identity](t, support.expect(events.UserOnline))
	req.Equal("u-alice", came.UserID)
	req.Equal(identity.RoleUser, came.Role)
	alice.expectNone(events.UserOnline, 100*time.Millisecond)

	// A second tab is not a new arrival.
	second := dial(t, srv, "u-alice", "user", "Alice")
	second.expect(events.OnlineUsersUpdate)
	support.expectNone(events.UserOnline, 100*time.Millisecond)

	req.NoError(second.conn.Close())
	req.NoError(alice.conn.Close())
	gone := decode[identity.Identity](t, support.expect(events.UserOffline))
	req.Equal("u-alice", gone.UserID)

	// Admins coming and going are not announced.
	req.NoError(other.conn.Close())
	support.expectNone(events.UserOffline, 200*time.Millisecond)
}
