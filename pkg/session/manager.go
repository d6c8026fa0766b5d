// Package session runs the guide's event loop: position updates, point list
// changes and presentation commands are applied one at a time, and each one
// re-evaluates proximity and publishes a Snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geoguide/pkg/geo"
	"geoguide/pkg/logging"
	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
	"geoguide/pkg/proximity"
)

var (
	// ErrNothingActive is returned by Dismiss when no point is being presented.
	ErrNothingActive = errors.New("no active point")
	// ErrAlreadyActive is returned by Select for the point already presented.
	ErrAlreadyActive = errors.New("point already active")
)

// LocationSource is the part of location.Source the session drives.
type LocationSource interface {
	Initialize(ctx context.Context) bool
	Resolved() bool
	Status() model.PositionStatus
	Subscribe(fn func(model.PositionStatus)) (unsubscribe func())
	Close()
}

// Config holds event loop settings.
type Config struct {
	QueueSize         int
	PermissionTimeout time.Duration // how long one permission request may wait
	PermissionRetry   time.Duration // pause before asking again after an unresolved request
}

// Snapshot is the session state after an event was applied.
type Snapshot struct {
	SessionID          string               `json:"session_id"`
	Status             model.PositionStatus `json:"status"`
	Result             proximity.Result     `json:"proximity"`
	Active             *model.Point         `json:"active"`
	Trigger            proximity.Trigger    `json:"trigger,omitempty"`
	Activation         uint64               `json:"activation"` // bumped on every activation, even of the same point
	Presented          []string             `json:"presented"`
	PointCount         int                  `json:"point_count"`
	Course             *float64             `json:"course,omitempty"`
	PermissionResolved bool                 `json:"permission_resolved"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// Manager owns one location source, the current point list and the proximity
// tracker. State changes only happen on the Run goroutine.
type Manager struct {
	src     LocationSource
	cfg     Config
	tracker *proximity.Tracker
	course  *geo.TrackBuffer
	queue   chan event
	logger  *slog.Logger

	// Loop-owned state.
	status  model.PositionStatus
	points  []model.Point
	heading *float64

	mu        sync.RWMutex
	id        string
	snapshot  Snapshot
	history   []model.Event
	pointByID map[string]model.Point
	observers map[int]func(Snapshot)
	nextObs   int
	running   bool
}

// NewManager creates a session around src. Nothing happens until Run.
func NewManager(src LocationSource, cfg Config) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.PermissionTimeout <= 0 {
		cfg.PermissionTimeout = 30 * time.Second
	}
	if cfg.PermissionRetry <= 0 {
		cfg.PermissionRetry = 5 * time.Second
	}
	m := &Manager{
		src:       src,
		cfg:       cfg,
		tracker:   proximity.NewTracker(),
		course:    geo.NewTrackBuffer(5, 5),
		queue:     make(chan event, cfg.QueueSize),
		logger:    slog.With("component", "session"),
		id:        uuid.NewString(),
		pointByID: make(map[string]model.Point),
		observers: make(map[int]func(Snapshot)),
	}
	m.snapshot = Snapshot{SessionID: m.id, Presented: []string{}}
	return m
}

// Run processes events until ctx is cancelled. The position watch is released
// before Run returns, on every path.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("session %s is already running", m.id)
	}
	m.running = true
	m.mu.Unlock()

	defer m.src.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	unsubscribe := m.src.Subscribe(func(st model.PositionStatus) {
		m.enqueue(ctx, event{kind: evStatus, status: st})
	})
	defer unsubscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.initialize(ctx)
	}()

	m.logger.Info("Session started", "session_id", m.ID())
	m.apply(event{kind: evStatus, status: m.src.Status()})

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Session stopped", "session_id", m.ID())
			return nil
		case ev := <-m.queue:
			m.apply(ev)
		}
	}
}

// initialize retries the permission flow until it resolves or ctx ends.
func (m *Manager) initialize(ctx context.Context) {
	for {
		reqCtx, cancel := context.WithTimeout(ctx, m.cfg.PermissionTimeout)
		granted := m.src.Initialize(reqCtx)
		cancel()

		if m.src.Resolved() {
			m.enqueue(ctx, event{kind: evPermission, granted: granted})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.PermissionRetry):
		}
	}
}

// ID returns the current session id.
func (m *Manager) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id
}

// Snapshot returns the latest published state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Events returns the session's event history.
func (m *Manager) Events() []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Event(nil), m.history...)
}

// Point looks up a point in the current list.
func (m *Manager) Point(id string) (model.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pointByID[id]
	return p, ok
}

// Observe registers fn for every published Snapshot. fn runs on the event
// loop and must not block or call back into the Manager synchronously.
func (m *Manager) Observe(fn func(Snapshot)) (cancel func()) {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// SetPoints replaces the candidate point list.
func (m *Manager) SetPoints(ctx context.Context, points []model.Point) error {
	cp := append([]model.Point(nil), points...)
	_, err := m.call(ctx, event{kind: evPoints, points: cp})
	return err
}

// Dismiss ends the active presentation and adds it to the Presented-set.
func (m *Manager) Dismiss(ctx context.Context) (string, error) {
	return m.call(ctx, event{kind: evDismiss})
}

// Select activates p on user request.
func (m *Manager) Select(ctx context.Context, p model.Point) error {
	_, err := m.call(ctx, event{kind: evSelect, point: p})
	return err
}

// Restart starts a new session: new id, empty Presented-set, no active point.
// The position watch keeps running.
func (m *Manager) Restart(ctx context.Context) (string, error) {
	return m.call(ctx, event{kind: evRestart})
}

func (m *Manager) call(ctx context.Context, ev event) (string, error) {
	ev.reply = make(chan reply, 1)
	if !m.enqueue(ctx, ev) {
		return "", ctx.Err()
	}
	select {
	case r := <-ev.reply:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) enqueue(ctx context.Context, ev event) bool {
	select {
	case m.queue <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) record(ev *model.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.history = append(m.history, *ev)
	m.mu.Unlock()

	logging.LogEvent(ev)
}

func (m *Manager) activated(act proximity.Activation) {
	metrics.Activations.WithLabelValues(string(act.Trigger)).Inc()
	m.logger.Info("Point activated", "id", act.Point.ID, "title", act.Point.DisplayName(), "trigger", act.Trigger)
	m.record(&model.Event{
		Type:    model.EventActivated,
		PointID: act.Point.ID,
		Title:   act.Point.DisplayName(),
		Summary: string(act.Trigger),
	})
}
