package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"iptv-live/pkg/client"
	"iptv-live/pkg/events"

	"github.com/mama165/sdk-go/logs"
)

var (
	wsURL     = flag.String("url", "ws://localhost:8080/ws", "websocket endpoint")
	userCount = flag.Int("users", 100, "customers, each paired with its own admin connection")
	msgCount  = flag.Int("messages", 20, "messages per customer")
	adminID   = flag.String("admin", "admin-1", "admin user id")
)

var (
	sent     atomic.Int64
	received atomic.Int64
)

func main() {
	flag.Parse()

	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", *userCount, *msgCount)
	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *userCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := runPair(id); err != nil {
				log.Printf("❌ pair %d: %v", id, err)
			}
		}(i)
	}

	wg.Wait()
	log.Printf("✅ LOAD TEST COMPLETE in %s: sent %d, received %d", time.Since(start), sent.Load(), received.Load())
}

// runPair opens a customer socket, starts a conversation, joins it from an
// admin socket and has both sides send messages.
func runPair(id int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := logs.GetLoggerFromString("WARN")

	customer, err := client.Dial(ctx, *wsURL, client.Handshake{
		UserID: fmt.Sprintf("u_%d", id),
		Role:   "user",
		Name:   fmt.Sprintf("Customer %d", id),
	}, logger)
	if err != nil {
		return err
	}
	defer customer.Close()

	admin, err := client.Dial(ctx, *wsURL, client.Handshake{UserID: *adminID, Role: "admin", Name: "Support"}, logger)
	if err != nil {
		return err
	}
	defer admin.Close()

	created := make(chan string, 1)
	release := customer.Subscribe(events.ConversationCreated, func(data json.RawMessage) {
		var conv client.Conversation
		if json.Unmarshal(data, &conv) == nil && conv.ID != "" {
			select {
			case created <- conv.ID:
			default:
			}
		}
	})
	defer release()

	if err := customer.Emit(events.CreateConversation, events.NewConversation{Subject: fmt.Sprintf("Load test %d", id)}); err != nil {
		return err
	}

	var convID string
	select {
	case convID = <-created:
	case <-ctx.Done():
		return fmt.Errorf("no conversation created: %w", ctx.Err())
	}

	for _, conn := range []*client.Conn{customer, admin} {
		conn.Subscribe(events.ReceiveMessage, func(json.RawMessage) { received.Add(1) })
		if err := conn.Emit(events.JoinRoom, events.Room{ConversationID: convID}); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	for name, conn := range map[string]*client.Conn{"customer": customer, "admin": admin} {
		wg.Add(1)
		go func(name string, conn *client.Conn) {
			defer wg.Done()
			spamChat(conn, convID, fmt.Sprintf("%s_%d", name, id))
		}(name, conn)
	}
	wg.Wait()

	// Give the last broadcasts time to arrive before closing.
	time.Sleep(500 * time.Millisecond)
	return nil
}

func spamChat(conn *client.Conn, convID, user string) {
	for i := 0; i < *msgCount; i++ {
		err := conn.Emit(events.SendMessage, events.Send{
			ConversationID: convID,
			Message:        fmt.Sprintf("LoadTest Msg %d from %s", i, user),
		})
		if err != nil {
			log.Printf("❌ Send Fail [%s]: %v", user, err)
			return
		}
		sent.Add(1)
		time.Sleep(10 * time.Millisecond)
	}
}
