package handler

import (
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"evidence-explorer/internal/session"
	"evidence-explorer/internal/websocket"
)

// EventsHandler upgrades to the WebSocket that carries upload prompts,
// progress and refresh notifications of one session.
type EventsHandler struct {
	sessions *session.Manager
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
}

func NewEventsHandler(sessions *session.Manager, hub *websocket.Hub, upgrader *gorillaws.Upgrader) *EventsHandler {
	return &EventsHandler{sessions: sessions, hub: hub, upgrader: upgrader}
}

func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(h.sessions, w, r)
	if !ok {
		return
	}

	// The upgrader has already answered the request when it fails.
	if err := h.hub.Serve(h.upgrader, w, r, s.ID); err != nil {
		slog.Warn("websocket upgrade failed", "session_id", s.ID, "error", err)
	}
}
