package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"geoguide/pkg/catalog"
	"geoguide/pkg/geo"
	"geoguide/pkg/model"
	"geoguide/pkg/proximity"
	"geoguide/pkg/session"
)

// Session is the part of session.Manager the API uses.
type Session interface {
	Snapshot() session.Snapshot
	Events() []model.Event
	Point(id string) (model.Point, bool)
	SetPoints(ctx context.Context, points []model.Point) error
	Dismiss(ctx context.Context) (string, error)
	Select(ctx context.Context, p model.Point) error
	Restart(ctx context.Context) (string, error)
}

// PointsHandler serves catalog pages and feeds them to the session.
type PointsHandler struct {
	catalog       catalog.Catalog
	session       Session
	defaultRadius float64 // km
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(c catalog.Catalog, s Session, defaultRadiusKm float64) *PointsHandler {
	return &PointsHandler{catalog: c, session: s, defaultRadius: defaultRadiusKm}
}

// HandleQuery handles GET /api/points?lat&lon&radius&page&size.
// Without lat/lon the current position is used. The returned page becomes the
// session's candidate list.
func (h *PointsHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := catalog.Page{RadiusKm: h.defaultRadius}
	center, ok, err := parseCenter(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		st := h.session.Snapshot().Status
		if st.Coordinate == nil {
			writeError(w, http.StatusConflict, "no position yet; pass lat and lon")
			return
		}
		center = *st.Coordinate
	}
	page.Center = center

	if v := q.Get("radius"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		page.RadiusKm = km
	}
	for key, dst := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}

	result, err := h.catalog.Query(r.Context(), page)
	if err != nil {
		slog.Error("Catalog query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "catalog query failed")
		return
	}
	if err := h.session.SetPoints(r.Context(), result.Points); err != nil {
		writeError(w, http.StatusServiceUnavailable, "session not running")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseCenter(lat, lon string) (geo.Point, bool, error) {
	if lat == "" && lon == "" {
		return geo.Point{}, false, nil
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	p := geo.Point{Lat: la, Lon: lo}
	if err1 != nil || err2 != nil || !p.Valid() {
		return geo.Point{}, false, errors.New("invalid lat/lon")
	}
	return p, true, nil
}

// HandleGet handles GET /api/points/{id}.
func (h *PointsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if ok {
		writeJSON(w, http.StatusOK, p)
	}
}

// DistanceResponse is the distance from the current position to a point.
type DistanceResponse struct {
	ID       string   `json:"id"`
	Distance *float64 `json:"distance"` // meters, null without a position
	Reached  bool     `json:"reached"`
}

// HandleDistance handles GET /api/points/{id}/distance.
func (h *PointsHandler) HandleDistance(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	resp := DistanceResponse{ID: p.ID}
	if d, ok := proximity.DistanceTo(h.session.Snapshot().Status, p); ok {
		resp.Distance = &d
		resp.Reached = d <= p.ActivationRadius
	}
	writeJSON(w, http.StatusOK, resp)
}

// lookup prefers the session's list and falls back to the catalog.
func (h *PointsHandler) lookup(w http.ResponseWriter, r *http.Request) (model.Point, bool) {
	return lookupPoint(w, r, h.session, h.catalog)
}

func lookupPoint(w http.ResponseWriter, r *http.Request, s Session, c catalog.Catalog) (model.Point, bool) {
	id := r.PathValue("id")
	if p, ok := s.Point(id); ok {
		return p, true
	}
	p, err := c.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrPointNotFound) {
		writeError(w, http.StatusNotFound, "point not found")
		return model.Point{}, false
	}
	if err != nil {
		slog.Error("Catalog lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return model.Point{}, false
	}
	return p, true
}
