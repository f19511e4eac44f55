// Package client is the Go consumer of the live service: a websocket
// connection with per-event subscriptions, a REST fallback and the
// notification reconciliation hook.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"iptv-live/pkg/events"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("connection closed")

// Handler receives the raw data of one inbound event.
type Handler func(data json.RawMessage)

// Unsubscribe releases a subscription. Calling it more than once is safe.
type Unsubscribe func()

// Transport is what the notification hook needs from a connection.
type Transport interface {
	Emit(event string, data any) error
	Subscribe(event string, h Handler) Unsubscribe
}

// Handshake is sent as query parameters when the socket opens.
type Handshake struct {
	UserID string
	Role   string
	Name   string
	Token  string
}

type Conn struct {
	ws  *websocket.Conn
	log *slog.Logger

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]map[uint64]Handler
	next uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens the socket at serverURL (ws:// or wss://).
func Dial(ctx context.Context, serverURL string, h Handshake, log *slog.Logger) (*Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	for k, v := range map[string]string{"user_id": h.UserID, "role": h.Role, "name": h.Name, "token": h.Token} {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	c := &Conn{
		ws:   ws,
		log:  log,
		subs: make(map[string]map[uint64]Handler),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop routes inbound envelopes to subscribers. The server may batch
// several envelopes in one frame separated by newlines.
func (c *Conn) readLoop() {
	defer c.closeOnce.Do(func() { close(c.done) })
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Socket read failed", "error", err)
			}
			return
		}
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			env, err := events.Decode(line)
			if err != nil {
				c.log.Debug("Ignoring malformed frame", "error", err)
				continue
			}
			c.dispatch(env)
		}
	}
}

func (c *Conn) dispatch(env events.Envelope) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[env.Event]))
	for _, h := range c.subs[env.Event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(env.Data)
	}
}

func (c *Conn) Subscribe(event string, h Handler) Unsubscribe {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	if c.subs[event] == nil {
		c.subs[event] = make(map[uint64]Handler)
	}
	c.subs[event][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs[event], id)
			if len(c.subs[event]) == 0 {
				delete(c.subs, event)
			}
		})
	}
}

func (c *Conn) Emit(event string, data any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	frame, err := events.Encode(event, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Done is closed when the read loop stops.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close sends a close frame and waits briefly for the server to hang up.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	err := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	if cerr := c.ws.Close(); err == nil {
		err = cerr
	}
	return err
}
