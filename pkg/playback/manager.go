// Package playback presents the session's active point: it plays the point's
// audio and dismisses the point when the file ends.
package playback

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"geoguide/pkg/audio"
	"geoguide/pkg/model"
	"geoguide/pkg/session"
)

// Session is the part of session.Manager the presenter drives.
type Session interface {
	Observe(fn func(session.Snapshot)) (cancel func())
	Dismiss(ctx context.Context) (string, error)
}

// State describes what is being presented.
type State struct {
	PointID string `json:"point_id,omitempty"`
	Path    string `json:"path,omitempty"`
	Playing bool   `json:"playing"`
}

// Presenter follows session snapshots and drives an audio.Player.
type Presenter struct {
	sess     Session
	player   audio.Player
	mediaDir string
	logger   *slog.Logger

	done chan uint64

	mu      sync.RWMutex
	current string // active point id
	seq     uint64 // session activation being presented
	path    string // file playing for it, "" when nothing local to play
}

// NewPresenter creates a presenter resolving relative media paths under mediaDir.
func NewPresenter(sess Session, player audio.Player, mediaDir string) *Presenter {
	return &Presenter{
		sess:     sess,
		player:   player,
		mediaDir: mediaDir,
		logger:   slog.With("component", "playback"),
		done:     make(chan uint64, 1),
	}
}

// Run presents snapshots until ctx ends, then stops playback.
func (p *Presenter) Run(ctx context.Context) {
	updates := make(chan session.Snapshot, 1)
	cancel := p.sess.Observe(func(s session.Snapshot) {
		// Only the latest snapshot matters; the session loop is the only sender.
		select {
		case <-updates:
		default:
		}
		updates <- s
	})
	defer cancel()
	defer p.player.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			p.present(ctx, s)
		case seq := <-p.done:
			p.finished(ctx, seq)
		}
	}
}

// State returns the current presentation.
func (p *Presenter) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return State{PointID: p.current, Path: p.path, Playing: p.path != "" && p.player.IsBusy()}
}

// present starts the snapshot's active point. A point dismissed and activated
// again between two observed snapshots still restarts, since it carries a new
// activation number.
func (p *Presenter) present(ctx context.Context, s session.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := s.Active
	if active == nil {
		if p.current != "" {
			p.logger.Debug("Presentation ended", "point_id", p.current)
			p.player.Stop()
		}
		p.current, p.seq, p.path = "", 0, ""
		return
	}
	if active.ID == p.current && s.Activation == p.seq {
		return
	}

	p.player.Stop()
	p.current, p.seq, p.path = active.ID, s.Activation, ""

	path, ok := p.resolve(active.Media)
	if !ok {
		// Video, text and remote media are shown by the client, which dismisses.
		p.logger.Info("Presenting point", "point_id", active.ID, "title", active.Title, "media", active.Media.Kind)
		return
	}

	id, seq := active.ID, s.Activation
	err := p.player.Play(path, func() {
		select {
		case p.done <- seq:
		case <-ctx.Done():
		}
	})
	if err != nil {
		p.logger.Warn("Failed to play point media", "point_id", id, "path", path, "error", err)
		return
	}
	p.path = path
	p.logger.Info("Playing point", "point_id", id, "title", active.Title, "path", path)
}

func (p *Presenter) finished(ctx context.Context, seq uint64) {
	p.mu.Lock()
	if p.current == "" || seq != p.seq {
		p.mu.Unlock()
		return
	}
	id := p.current
	p.path = ""
	p.mu.Unlock()

	dismissed, err := p.sess.Dismiss(ctx)
	switch {
	case errors.Is(err, session.ErrNothingActive), errors.Is(err, context.Canceled):
	case err != nil:
		p.logger.Error("Failed to dismiss after playback", "point_id", id, "error", err)
	default:
		p.logger.Debug("Playback finished", "point_id", dismissed)
	}
}

// resolve maps audio media to a local file. Relative paths must stay inside
// the media directory.
func (p *Presenter) resolve(m model.Media) (string, bool) {
	if m.Kind != model.MediaAudio || m.URI == "" {
		return "", false
	}
	if strings.Contains(m.URI, "://") {
		return "", false
	}

	path := m.URI
	if !filepath.IsAbs(path) {
		if !filepath.IsLocal(path) {
			p.logger.Warn("Rejecting media path outside media dir", "uri", m.URI)
			return "", false
		}
		path = filepath.Join(p.mediaDir, path)
	}
	if !audio.IsAudioFile(path) {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		p.logger.Warn("Media file not available", "path", path, "error", err)
		return "", false
	}
	return path, true
}
