package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"evidence-explorer/internal/event"
)

func TestHubRoutesEventsBySession(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	hub := NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := NewUpgrader([]string{"*"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, hub.Serve(upgrader, w, r, r.URL.Query().Get("session")))
	}))
	defer server.Close()

	dial := func(session string) *websocket.Conn {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?session=" + session
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}

	mine := dial("s1")
	other := dial("s2")

	// Registration is asynchronous; keep publishing until the socket reads.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(event.New(event.TypeUploadConflict, "s1", map[string]string{"name": "a.pdf"}))
			}
		}
	}()

	_ = mine.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := mine.ReadMessage()
	close(stop)
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, event.TypeUploadConflict, got.Type)
	require.Equal(t, "s1", got.SessionID)

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	require.Error(t, err)
}

func TestUpgraderOrigins(t *testing.T) {
	t.Parallel()

	upgrader := NewUpgrader([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "http://gateway.example.com/ws", nil)
	req.Header.Set("Origin", "https://app.example.com")
	require.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	require.False(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://gateway.example.com")
	require.True(t, upgrader.CheckOrigin(req))
}

func TestHubClosesSocketsOfClosedSession(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	hub := NewHub(bus)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := NewUpgrader([]string{"*"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, hub.Serve(upgrader, w, r, "s1"))
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(event.New(event.TypeSessionClosed, "s1", nil))
			}
		}
	}()
	defer close(stop)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got event.Event
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, event.TypeSessionClosed, got.Type)

	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "unexpected error: %v", err)
}
