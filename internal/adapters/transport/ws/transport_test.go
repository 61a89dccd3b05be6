package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
)

var upgrader = websocket.Upgrader{}

func socketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestTransport(url string) *Transport {
	return NewTransport(Config{
		SocketURL:        url,
		HandshakeTimeout: 2 * time.Second,
	}, logging.NewNopLogger())
}

func TestConnect(t *testing.T) {
	t.Run("presents bearer token during handshake", func(t *testing.T) {
		gotAuth := make(chan string, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth <- r.Header.Get("Authorization")
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer ws.Close()
			ws.ReadMessage()
		}))
		defer server.Close()

		conn, err := newTestTransport(socketURL(server)).Connect(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		defer conn.Close()

		if auth := <-gotAuth; auth != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want Bearer tok-1", auth)
		}
	})

	t.Run("rejected token maps to AUTH code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newTestTransport(socketURL(server)).Connect(context.Background(), "stale")
		if domainErrors.CodeOf(err) != domainErrors.CodeAuth {
			t.Errorf("code = %s, want AUTH", domainErrors.CodeOf(err))
		}
	})

	t.Run("unreachable backend maps to TRANSPORT code", func(t *testing.T) {
		_, err := newTestTransport("ws://127.0.0.1:1/socket").Connect(context.Background(), "tok-1")
		if domainErrors.CodeOf(err) != domainErrors.CodeTransport {
			t.Errorf("code = %s, want TRANSPORT", domainErrors.CodeOf(err))
		}
	})
}

func TestEvents(t *testing.T) {
	t.Run("delivers decoded events and forwards acks", func(t *testing.T) {
		gotAck := make(chan ackFrame, 1)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer ws.Close()

			evt := dsync.RemoteEvent{
				EventID:   "evt-1",
				EventType: dsync.EventTaskCreated,
				Payload:   map[string]any{"id": "task-1", "title": "write tests"},
			}
			if err := ws.WriteJSON(evt); err != nil {
				return
			}

			var ack ackFrame
			if err := ws.ReadJSON(&ack); err != nil {
				return
			}
			gotAck <- ack
		}))
		defer server.Close()

		conn, err := newTestTransport(socketURL(server)).Connect(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		defer conn.Close()

		select {
		case evt := <-conn.Events():
			if evt.EventID != "evt-1" || evt.EventType != dsync.EventTaskCreated {
				t.Errorf("unexpected event: %+v", evt)
			}
			if evt.Payload["title"] != "write tests" {
				t.Errorf("payload = %v", evt.Payload)
			}
			if err := conn.Ack(context.Background(), evt.EventID); err != nil {
				t.Fatalf("Ack() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}

		select {
		case ack := <-gotAck:
			if ack.Type != "ack" || ack.EventID != "evt-1" {
				t.Errorf("unexpected ack frame: %+v", ack)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for ack")
		}
	})

	t.Run("malformed frames are skipped without killing the stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer ws.Close()
			ws.WriteMessage(websocket.TextMessage, []byte("not json"))
			blob, _ := json.Marshal(dsync.RemoteEvent{EventID: "evt-2", EventType: dsync.EventProjectCreated})
			ws.WriteMessage(websocket.TextMessage, blob)
			ws.ReadMessage()
		}))
		defer server.Close()

		conn, err := newTestTransport(socketURL(server)).Connect(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		defer conn.Close()

		select {
		case evt := <-conn.Events():
			if evt.EventID != "evt-2" {
				t.Errorf("eventID = %s, want evt-2", evt.EventID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event after malformed frame")
		}
	})

	t.Run("server drop closes event channel and reports error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			// Abrupt close, no close frame.
			ws.UnderlyingConn().Close()
		}))
		defer server.Close()

		conn, err := newTestTransport(socketURL(server)).Connect(context.Background(), "tok-1")
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
		defer conn.Close()

		select {
		case _, ok := <-conn.Events():
			if ok {
				t.Error("expected closed event channel")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for channel close")
		}

		<-conn.Done()
		if domainErrors.CodeOf(conn.Err()) != domainErrors.CodeTransport {
			t.Errorf("Err() = %v, want TRANSPORT code", conn.Err())
		}
	})
}
