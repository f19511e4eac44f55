package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iptv-live/pkg/events"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// echoServer answers every inbound envelope with two batched frames: an
// "ack" carrying the original event name and the original envelope.
func echoServer(t *testing.T, query chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query <- r.URL.RawQuery
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := events.Decode(frame)
			if err != nil {
				continue
			}
			ack, _ := events.Encode("ack", map[string]string{"event": env.Event})
			batch := append(append(ack, '\n'), frame...)
			if err := conn.WriteMessage(websocket.TextMessage, batch); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConn_SubscribeEmitAndUnsubscribe(t *testing.T) {
	req := require.New(t)
	query := make(chan string, 1)
	srv := echoServer(t, query)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	conn, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"),
		Handshake{UserID: "u-1", Role: "user", Name: "Alice"}, log)
	req.NoError(err)
	defer conn.Close()

	q := <-query
	req.Contains(q, "user_id=u-1")
	req.Contains(q, "role=user")
	req.NotContains(q, "token=")

	acks := make(chan string, 4)
	pings := make(chan json.RawMessage, 4)
	unsubAck := conn.Subscribe("ack", func(data json.RawMessage) {
		var v map[string]string
		_ = json.Unmarshal(data, &v)
		acks <- v["event"]
	})
	conn.Subscribe("ping", func(data json.RawMessage) { pings <- data })

	req.NoError(conn.Emit("ping", map[string]int{"n": 1}))
	select {
	case ev := <-acks:
		req.Equal("ping", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no ack")
	}
	select {
	case data := <-pings:
		req.JSONEq(`{"n":1}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no echo")
	}

	unsubAck()
	unsubAck()
	req.NoError(conn.Emit("ping", map[string]int{"n": 2}))
	<-pings
	select {
	case ev := <-acks:
		t.Fatalf("ack delivered after unsubscribe: %s", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConn_EmitAfterServerCloses(t *testing.T) {
	req := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	conn, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), Handshake{}, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
	req.ErrorIs(conn.Emit("ping", nil), ErrClosed)
}
