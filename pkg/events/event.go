package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_READY").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Document lifecycle event codes published on terminal ingestion states.
const (
	TypeDocumentReady  = "DOCUMENT_READY"
	TypeDocumentFailed = "DOCUMENT_FAILED"
	TypeSessionEnded   = "SESSION_ENDED"
)

// BaseEvent is the standard Event implementation.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// DocumentEvent builds a lifecycle event for one document.
func DocumentEvent(eventType, sessionId, documentId, name, reason string) BaseEvent {
	data := map[string]interface{}{
		"session_id":  sessionId,
		"document_id": documentId,
		"name":        name,
	}
	if reason != "" {
		data["reason"] = reason
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
