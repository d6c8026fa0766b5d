// Package audio plays point media through the system speaker.
package audio

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// ErrNotAudio is returned by Play for files that are neither mp3 nor wav.
var ErrNotAudio = errors.New("unsupported audio file")

const targetSampleRate = beep.SampleRate(48000)

// Player is the playback surface used by the presenter.
type Player interface {
	// Play starts path, replacing anything playing. onComplete runs once when
	// the file ends, never after Stop.
	Play(path string, onComplete func()) error
	Stop()
	IsBusy() bool
}

// Manager implements Player using gopxl/beep.
type Manager struct {
	mu                 sync.RWMutex
	ctrl               *beep.Ctrl
	volume             float64
	paused             bool
	speakerInitialized bool
	streamer           *effects.Volume
	track              beep.StreamSeekCloser
	format             beep.Format
	current            string
	gen                int
	logger             *slog.Logger
}

// New creates a Manager at the given volume (0.0 to 1.0).
func New(volume float64) *Manager {
	m := &Manager{logger: slog.With("component", "audio")}
	m.volume = clampVolume(volume)
	return m
}

// Play decodes path and starts playback.
func (m *Manager) Play(path string, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	track, format, err := decodeMedia(path)
	if err != nil {
		m.logger.Error("Failed to decode audio file", "path", path, "error", err)
		return err
	}
	if err := m.ensureSpeakerInitialized(); err != nil {
		track.Close()
		return err
	}

	vol := &effects.Volume{
		Streamer: beep.Resample(3, format.SampleRate, targetSampleRate, track),
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= silentBelow,
	}

	m.gen++
	gen := m.gen
	m.streamer = vol
	m.track = track
	m.format = format
	m.current = path
	m.ctrl = &beep.Ctrl{Streamer: vol}
	m.paused = false

	speaker.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		// The speaker goroutine holds its own lock here.
		go m.finished(gen, onComplete)
	})))

	m.logger.Debug("Playing audio", "path", path, "duration", format.SampleRate.D(track.Len()))
	return nil
}

func (m *Manager) finished(gen int, onComplete func()) {
	m.mu.Lock()
	if gen != m.gen || m.ctrl == nil {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.mu.Unlock()

	if onComplete != nil {
		onComplete()
	}
}

// Pause pauses current playback.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctrl != nil {
		speaker.Lock()
		m.ctrl.Paused = true
		speaker.Unlock()
		m.paused = true
	}
}

// Resume resumes paused playback.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctrl != nil && m.paused {
		speaker.Lock()
		m.ctrl.Paused = false
		speaker.Unlock()
		m.paused = false
	}
}

// Stop ends playback without running the completion callback.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.ctrl == nil {
		return
	}
	m.gen++
	speaker.Clear()
	m.logger.Debug("Stopped audio", "path", m.current)
	m.releaseLocked()
}

func (m *Manager) releaseLocked() {
	if m.track != nil {
		m.track.Close()
	}
	m.track = nil
	m.streamer = nil
	m.ctrl = nil
	m.paused = false
	m.current = ""
}

func (m *Manager) ensureSpeakerInitialized() error {
	if m.speakerInitialized {
		return nil
	}
	if err := speaker.Init(targetSampleRate, targetSampleRate.N(time.Second/10)); err != nil {
		m.logger.Error("Failed to initialize speaker", "error", err)
		return err
	}
	m.speakerInitialized = true
	return nil
}

// IsBusy reports whether a file is loaded, playing or paused.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil
}

// IsPlaying reports whether audio is audible right now.
func (m *Manager) IsPlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil && !m.paused
}

// IsPaused reports whether playback is paused.
func (m *Manager) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Current returns the file being played, or "".
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetVolume sets playback volume (0.0 to 1.0), applied to the live stream too.
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volume = clampVolume(vol)
	if m.streamer != nil {
		speaker.Lock()
		m.streamer.Volume = volumeToPower(m.volume)
		m.streamer.Silent = m.volume <= silentBelow
		speaker.Unlock()
	}
}

// Volume returns the current volume level.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

// Remaining returns the time left in the current file.
func (m *Manager) Remaining() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.track == nil || m.format.SampleRate == 0 {
		return 0
	}
	n := m.track.Len() - m.track.Position()
	if n < 0 {
		return 0
	}
	return m.format.SampleRate.D(n)
}
