package ws

import (
	"context"
	"log/slog"
)

type subscription struct {
	client *Client
	topic  string
}

type delivery struct {
	topic   string
	payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub owns the live clients and their topic subscriptions. All state is
// touched only by the Run goroutine; everything else talks to it through
// channels.
type Hub struct {
	clients map[*Client]bool
	topics  map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	deliver     chan delivery
	direct      chan directMessage
	done        chan struct{}

	log *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		topics:      make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		deliver:     make(chan delivery),
		direct:      make(chan directMessage),
		done:        make(chan struct{}),
		log:         log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case s := <-h.subscribe:
			if !h.clients[s.client] {
				continue
			}
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[*Client]bool)
				h.topics[s.topic] = subs
			}
			subs[s.client] = true

		case s := <-h.unsubscribe:
			h.removeFromTopic(s.topic, s.client)

		case d := <-h.deliver:
			for client := range h.topics[d.topic] {
				h.send(client, d.payload)
			}

		case m := <-h.direct:
			if h.clients[m.client] {
				h.send(m.client, m.payload)
			}
		}
	}
}

// send never blocks the hub: a client whose queue is full is dropped.
func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.log.Warn("Dropping slow client", "connection_id", client.identity.ConnectionID, "user_id", client.identity.UserID)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	for topic := range h.topics {
		h.removeFromTopic(topic, client)
	}
	delete(h.clients, client)
	close(client.send)
}

func (h *Hub) removeFromTopic(topic string, client *Client) {
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// The methods below return once the hub has taken the request, or
// immediately if it has stopped.

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Subscribe(c *Client, topic string) {
	select {
	case h.subscribe <- subscription{client: c, topic: topic}:
	case <-h.done:
	}
}

func (h *Hub) Unsubscribe(c *Client, topic string) {
	select {
	case h.unsubscribe <- subscription{client: c, topic: topic}:
	case <-h.done:
	}
}

// Deliver fans payload out to the local subscribers of topic. It is the
// pubsub.Deliver used by both buses.
func (h *Hub) Deliver(topic string, payload []byte) {
	select {
	case h.deliver <- delivery{topic: topic, payload: payload}:
	case <-h.done:
	}
}

// SendTo queues payload for one client only.
func (h *Hub) SendTo(c *Client, payload []byte) {
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }
