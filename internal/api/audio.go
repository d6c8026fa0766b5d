package api

import (
	"net/http"
)

// AudioController is the playback control surface of audio.Manager.
type AudioController interface {
	Pause()
	Resume()
	Stop()
	IsPlaying() bool
	IsPaused() bool
	SetVolume(vol float64)
	Volume() float64
}

// AudioHandler handles audio control endpoints.
type AudioHandler struct {
	audio AudioController
}

// NewAudioHandler creates a new AudioHandler. Returns nil without a player.
func NewAudioHandler(a AudioController) *AudioHandler {
	if a == nil {
		return nil
	}
	return &AudioHandler{audio: a}
}

// AudioControlRequest represents an audio control command.
type AudioControlRequest struct {
	Action string `json:"action"` // "pause", "resume"
}

// AudioVolumeRequest represents a volume change request.
type AudioVolumeRequest struct {
	Volume float64 `json:"volume"`
}

// AudioStatusResponse represents the audio status.
type AudioStatusResponse struct {
	IsPlaying bool    `json:"is_playing"`
	IsPaused  bool    `json:"is_paused"`
	Volume    float64 `json:"volume"`
}

// HandleControl handles POST /api/audio/control. Stopping a point goes
// through /api/presentation/dismiss so the session records it.
func (h *AudioHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req AudioControlRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "pause":
		h.audio.Pause()
	case "resume":
		h.audio.Resume()
	default:
		writeError(w, http.StatusBadRequest, "unknown action "+req.Action)
		return
	}
	h.HandleStatus(w, r)
}

// HandleVolume handles POST /api/audio/volume
func (h *AudioHandler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	var req AudioVolumeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.audio.SetVolume(req.Volume)
	h.HandleStatus(w, r)
}

// HandleStatus handles GET /api/audio/status
func (h *AudioHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AudioStatusResponse{
		IsPlaying: h.audio.IsPlaying(),
		IsPaused:  h.audio.IsPaused(),
		Volume:    h.audio.Volume(),
	})
}
