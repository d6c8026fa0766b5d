package api

import (
	"net/http"

	"geoguide/pkg/model"
)

// EventProvider provides the session's event history.
type EventProvider interface {
	Events() []model.Event
}

// TripHandler serves the walk's event log.
type TripHandler struct {
	session EventProvider
}

// NewTripHandler creates a new TripHandler. Returns nil without a session.
func NewTripHandler(s EventProvider) *TripHandler {
	if s == nil {
		return nil
	}
	return &TripHandler{session: s}
}

// HandleEvents returns the session events as JSON.
// GET /api/session/events
func (h *TripHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events := h.session.Events()
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
