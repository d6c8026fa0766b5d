package api

import (
	"errors"
	"net/http"

	"geoguide/pkg/geo"
	"geoguide/pkg/location/pushsensor"
	"geoguide/pkg/model"
)

// LocationHandler feeds device reports into the push sensor.
type LocationHandler struct {
	sensor *pushsensor.Sensor
}

// NewLocationHandler creates a LocationHandler. Returns nil without a sensor.
func NewLocationHandler(s *pushsensor.Sensor) *LocationHandler {
	if s == nil {
		return nil
	}
	return &LocationHandler{sensor: s}
}

// FixRequest is a device position report.
type FixRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// HandleFix handles POST /api/location/fix
func (h *LocationHandler) HandleFix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if err := decodeBody(w, r, &req); err != nil || req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	accepted, err := h.sensor.PushFix(geo.Point{Lat: *req.Lat, Lon: *req.Lon})
	switch {
	case errors.Is(err, pushsensor.ErrInvalidFix):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pushsensor.ErrNoWatch):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": accepted})
	}
}

// ErrorRequest is a device-side watch failure.
type ErrorRequest struct {
	Kind string `json:"kind"`
}

// HandleError handles POST /api/location/error
func (h *LocationHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	var req ErrorRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := model.ParseErrorKind(req.Kind)
	if err := h.sensor.PushError(kind); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"kind": string(kind)})
}

// PermissionRequest answers a pending permission prompt.
type PermissionRequest struct {
	Granted bool `json:"granted"`
}

// HandlePermission handles POST /api/location/permission
func (h *LocationHandler) HandlePermission(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.sensor.ReportPermission(req.Granted)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePermissionStatus handles GET /api/location/permission
func (h *LocationHandler) HandlePermissionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"pending":  h.sensor.PermissionPending(),
		"watching": h.sensor.Active(),
	})
}
