package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geoguide/pkg/version"
)

// NewServer creates and configures the HTTP server. Nil handlers leave their
// endpoints unregistered.
func NewServer(addr string, loc *LocationHandler, points *PointsHandler, pres *PresentationHandler, audioH *AudioHandler, trip *TripHandler, stream *StreamHub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/event", handleLatestEvent)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Device position feed (push provider only)
	if loc != nil {
		mux.HandleFunc("POST /api/location/fix", loc.HandleFix)
		mux.HandleFunc("POST /api/location/error", loc.HandleError)
		mux.HandleFunc("GET /api/location/permission", loc.HandlePermissionStatus)
		mux.HandleFunc("POST /api/location/permission", loc.HandlePermission)
	}

	mux.HandleFunc("GET /api/points", points.HandleQuery)
	mux.HandleFunc("GET /api/points/{id}", points.HandleGet)
	mux.HandleFunc("GET /api/points/{id}/distance", points.HandleDistance)

	mux.HandleFunc("GET /api/status", pres.HandleStatus)
	mux.HandleFunc("GET /api/presentation", pres.HandlePresentation)
	mux.HandleFunc("POST /api/presentation/dismiss", pres.HandleDismiss)
	mux.HandleFunc("POST /api/presentation/select/{id}", pres.HandleSelect)
	mux.HandleFunc("POST /api/session/restart", pres.HandleRestart)

	if audioH != nil {
		mux.HandleFunc("POST /api/audio/control", audioH.HandleControl)
		mux.HandleFunc("POST /api/audio/volume", audioH.HandleVolume)
		mux.HandleFunc("GET /api/audio/status", audioH.HandleStatus)
	}

	if trip != nil {
		mux.HandleFunc("GET /api/session/events", trip.HandleEvents)
	}

	if stream != nil {
		mux.HandleFunc("GET /api/stream", stream.HandleStream)
	}

	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first.
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
