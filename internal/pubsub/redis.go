package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "iptv-live:events"

type wireMessage struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBus publishes every topic on a single Redis channel. Each instance
// subscribes once and hands messages to its own Hub, so rooms and personal
// channels work across instances.
type RedisBus struct {
	client  *redis.Client
	channel string
	deliver Deliver
	log     *slog.Logger
}

func NewRedisBus(client *redis.Client, channel string, deliver Deliver, log *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel, deliver: deliver, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	msg, err := json.Marshal(wireMessage{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode bus message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Start subscribes and waits for Redis to confirm before returning, then
// forwards messages until ctx is cancelled.
func (b *RedisBus) Start(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.forward(msg.Payload)
			}
		}
	}()
	return nil
}

func (b *RedisBus) forward(raw string) {
	var msg wireMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		b.log.Warn("Dropping malformed bus message", "error", err)
		return
	}
	b.deliver(msg.Topic, msg.Payload)
}
