package api

import (
	"errors"
	"net/http"

	"geoguide/pkg/catalog"
	"geoguide/pkg/playback"
	"geoguide/pkg/session"
)

// PresentationHandler exposes session state and presentation commands.
type PresentationHandler struct {
	session   Session
	catalog   catalog.Catalog
	presenter *playback.Presenter
}

// NewPresentationHandler creates a new PresentationHandler. presenter may be nil.
func NewPresentationHandler(s Session, c catalog.Catalog, presenter *playback.Presenter) *PresentationHandler {
	return &PresentationHandler{session: s, catalog: c, presenter: presenter}
}

// HandleStatus handles GET /api/status
func (h *PresentationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandlePresentation handles GET /api/presentation
func (h *PresentationHandler) HandlePresentation(w http.ResponseWriter, r *http.Request) {
	if h.presenter == nil {
		writeJSON(w, http.StatusOK, playback.State{})
		return
	}
	writeJSON(w, http.StatusOK, h.presenter.State())
}

// HandleDismiss handles POST /api/presentation/dismiss
func (h *PresentationHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id, err := h.session.Dismiss(r.Context())
	if errors.Is(err, session.ErrNothingActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dismissed": id})
}

// HandleSelect handles POST /api/presentation/select/{id}
func (h *PresentationHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	p, ok := lookupPoint(w, r, h.session, h.catalog)
	if !ok {
		return
	}
	err := h.session.Select(r.Context(), p)
	if errors.Is(err, session.ErrAlreadyActive) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": p.ID})
}

// HandleRestart handles POST /api/session/restart
func (h *PresentationHandler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	id, err := h.session.Restart(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}
