package model

import "time"

// EventType names a session event written to the event log.
type EventType string

const (
	EventActivated  EventType = "activated"
	EventDismissed  EventType = "dismissed"
	EventSelected   EventType = "selected"
	EventRestarted  EventType = "restarted"
	EventPermission EventType = "permission"
)

// Event is a notable session occurrence.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	PointID   string    `json:"point_id,omitempty"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
}
