package pubsub

import "context"

const (
	TopicAdmins = "admins"
	TopicAll    = "all"
)

func RoomTopic(conversationID string) string { return "room:" + conversationID }

func UserTopic(userID string) string { return "user:" + userID }

// Deliver hands a published payload to the local connections subscribed to topic.
type Deliver func(topic string, payload []byte)

// Bus is the only path from the router and the dispatcher to connected sockets.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LocalBus delivers in-process, for single-instance deployments and tests.
type LocalBus struct {
	deliver Deliver
}

func NewLocalBus(deliver Deliver) *LocalBus {
	return &LocalBus{deliver: deliver}
}

func (b *LocalBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.deliver(topic, payload)
	return nil
}
