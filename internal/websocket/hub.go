package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"evidence-explorer/internal/event"
)

// Hub forwards bus events to the sockets of the session they belong to. All
// socket bookkeeping happens on the Run goroutine.
type Hub struct {
	sessions   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	bus        event.Bus

	// Closed when Run returns.
	done chan struct{}
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		bus:        bus,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer close(h.done)
	defer h.dropAll()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			clients, ok := h.sessions[client.sessionID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.sessions[client.sessionID] = clients
			}
			clients[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.forward(e)
		}
	}
}

func (h *Hub) forward(e event.Event) {
	clients := h.sessions[e.SessionID]
	if len(clients) == 0 {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "type", e.Type, "error", err)
		return
	}

	for client := range clients {
		select {
		case client.send <- message:
		default:
			slog.Warn("closing slow websocket", "session_id", e.SessionID)
			h.drop(client)
		}
	}

	// The final event reaches the browser before its sockets close.
	if e.Type == event.TypeSessionClosed {
		for client := range clients {
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
}

func (h *Hub) dropAll() {
	for _, clients := range h.sessions {
		for client := range clients {
			h.drop(client)
		}
	}
}
