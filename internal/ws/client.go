package ws

import (
	"context"
	"time"

	"iptv-live/internal/identity"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 8192                // Maximum message size allowed from peer.
	eventTimeout   = 15 * time.Second    // Time allowed to handle one inbound event.
	sendBuffer     = 256
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	manager  *ConnectionManager
	events   *EventHandler
	conn     *websocket.Conn
	send     chan []byte
	identity identity.Identity
}

func newClient(m *ConnectionManager, events *EventHandler, conn *websocket.Conn, id identity.Identity) *Client {
	return &Client{
		manager:  m,
		events:   events,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: id,
	}
}

// readPump handles one inbound event to completion before reading the next.
func (c *Client) readPump() {
	defer func() {
		c.manager.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.log.Warn("Socket closed unexpectedly", "connection_id", c.identity.ConnectionID, "error", err)
			}
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		c.events.Handle(ctx, c, message)
		cancel()
	}
}

// writePump pumps messages from the hub to the websocket connection. Queued
// messages are written in one frame separated by newlines.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
