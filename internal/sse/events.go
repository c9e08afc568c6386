// Package sse streams document change notifications to connected clients
// as Server-Sent Events.
package sse

import (
	"time"

	"github.com/icberg-810202/tilecatread/internal/domain"
)

// EventType represents the type of an SSE event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"

	// EventDocumentUpdated is sent after a document was overwritten.
	EventDocumentUpdated EventType = "document.updated"

	// EventHeartbeat keeps idle connections open through proxies.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on the stream.
type Event struct {
	Type      EventType `json:"type"`
	Username  string    `json:"username,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentSummary is the payload of a document.updated event. The document
// itself is never streamed; clients refetch it.
type DocumentSummary struct {
	Books       int       `json:"books"`
	Quotes      int       `json:"quotes"`
	Devices     int       `json:"devices"`
	LastUpdated time.Time `json:"lastUpdated,omitzero"`
}

// NewDocumentUpdatedEvent summarizes doc for its owner's subscribers.
func NewDocumentUpdatedEvent(doc *domain.Document) Event {
	return Event{
		Type:     EventDocumentUpdated,
		Username: doc.Username,
		Data: DocumentSummary{
			Books:       len(doc.Books),
			Quotes:      doc.QuoteCount(),
			Devices:     len(doc.DeviceSelections),
			LastUpdated: doc.LastUpdated,
		},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now()}
}
