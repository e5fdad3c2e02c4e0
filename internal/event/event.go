package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeUploadProgress   Type = "upload.progress"
	TypeUploadConflict   Type = "upload.conflict"
	TypeUploadCompleted  Type = "upload.completed"
	TypeListingRefreshed Type = "listing.refreshed"
	TypeObjectsDeleted   Type = "objects.deleted"
	TypeMetadataUpdated  Type = "metadata.updated"
	TypeSessionClosed    Type = "session.closed"
)

type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
	Timestamp string      `json:"timestamp"`
}

// New stamps an event for one browser session.
func New(t Type, sessionID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Bus delivers session events to in-process subscribers such as the
// WebSocket hub.
type Bus interface {
	Publish(e Event)
	Subscribe(types ...Type) (<-chan Event, func())
}
