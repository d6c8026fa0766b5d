package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudio struct {
	paused bool
	volume float64
}

func (f *fakeAudio) Pause()                { f.paused = true }
func (f *fakeAudio) Resume()               { f.paused = false }
func (f *fakeAudio) Stop()                 {}
func (f *fakeAudio) IsPlaying() bool       { return !f.paused }
func (f *fakeAudio) IsPaused() bool        { return f.paused }
func (f *fakeAudio) SetVolume(vol float64) { f.volume = vol }
func (f *fakeAudio) Volume() float64       { return f.volume }

func TestAudioHandler(t *testing.T) {
	a := &fakeAudio{volume: 1}
	h := NewAudioHandler(a)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		status  int
		want    AudioStatusResponse
	}{
		{"Pause", h.HandleControl, `{"action":"pause"}`, http.StatusOK, AudioStatusResponse{IsPaused: true, Volume: 1}},
		{"Volume", h.HandleVolume, `{"volume":0.4}`, http.StatusOK, AudioStatusResponse{IsPaused: true, Volume: 0.4}},
		{"Resume", h.HandleControl, `{"action":"resume"}`, http.StatusOK, AudioStatusResponse{IsPlaying: true, Volume: 0.4}},
		{"UnknownAction", h.HandleControl, `{"action":"rewind"}`, http.StatusBadRequest, AudioStatusResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			var got AudioStatusResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAudioHandler_Nil(t *testing.T) {
	assert.Nil(t, NewAudioHandler(nil))
}
