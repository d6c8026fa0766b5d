package location

import (
	"context"
	"log/slog"
	"sync"

	"geoguide/pkg/geo"
	"geoguide/pkg/logging"
	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
)

// Source relays the position watch into a PositionStatus and publishes every
// change to its subscribers, in the order the sensor produced them.
//
// Subscribers run on the sensor's callback goroutine and must not call Close
// or Initialize synchronously.
type Source struct {
	perm    PermissionProvider
	watcher Watcher
	opts    WatchOptions
	logger  *slog.Logger

	initMu sync.Mutex // serializes Initialize

	// dispatchMu is held while a status change is applied and delivered, so
	// Close cannot return while a delivery is in flight.
	dispatchMu sync.Mutex

	mu          sync.RWMutex
	initialized bool
	granted     bool
	watching    bool
	closed      bool
	watchID     WatchID
	status      model.PositionStatus
	subs        map[int]func(model.PositionStatus)
	nextSub     int
}

// NewSource creates a location source. Nothing is requested until Initialize.
func NewSource(perm PermissionProvider, w Watcher, opts WatchOptions) *Source {
	return &Source{
		perm:    perm,
		watcher: w,
		opts:    opts,
		logger:  slog.With("component", "location"),
		subs:    make(map[int]func(model.PositionStatus)),
	}
}

// Initialize resolves the location permission and, when granted, starts the
// position watch. It is idempotent: once the permission state is resolved,
// later calls return the recorded answer without prompting again. If the
// request itself fails (e.g. ctx expires before the user answers) the state
// stays unresolved and a later call asks again.
func (s *Source) Initialize(ctx context.Context) bool {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.RLock()
	initialized, granted, closed := s.initialized, s.granted, s.closed
	s.mu.RUnlock()
	if initialized || closed {
		return granted
	}

	granted, resolved := s.resolvePermission(ctx)
	if !resolved {
		return false
	}

	if !granted {
		s.mu.Lock()
		s.initialized = true
		s.granted = false
		s.mu.Unlock()
		s.logger.Warn("Location permission denied")
		s.publish(func(st *model.PositionStatus) {
			st.Enabled = false
			st.Error = model.ErrorPermissionDenied
		})
		return false
	}

	if err := s.startWatch(); err != nil {
		// Permission is fine, the sensor is not. Leave unresolved so the next
		// Initialize retries the watch.
		s.logger.Error("Failed to start position watch", "error", err)
		s.mu.Lock()
		s.granted = true
		s.mu.Unlock()
		s.publish(func(st *model.PositionStatus) {
			st.Enabled = false
			st.Error = model.ErrorServiceUnavailable
		})
		return true
	}

	s.mu.Lock()
	s.initialized = true
	s.granted = true
	s.mu.Unlock()
	s.logger.Info("Position watch started",
		"high_accuracy", s.opts.HighAccuracy,
		"min_displacement_m", s.opts.MinDisplacementMeters)
	return true
}

func (s *Source) resolvePermission(ctx context.Context) (granted, resolved bool) {
	ok, err := s.perm.Check(ctx)
	if err != nil {
		s.logger.Warn("Location permission check failed", "error", err)
	}
	if ok {
		return true, true
	}

	ok, err = s.perm.Request(ctx)
	if err != nil {
		s.logger.Info("Location permission request unresolved", "error", err)
		return false, false
	}
	return ok, true
}

func (s *Source) startWatch() error {
	s.mu.Lock()
	if s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watching = true
	s.mu.Unlock()

	id, err := s.watcher.Watch(s.opts, s.handleFix, s.handleError)
	if err != nil {
		s.mu.Lock()
		s.watching = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.watchID = id
	closedMeanwhile := s.closed
	s.mu.Unlock()

	if closedMeanwhile {
		s.watcher.Clear(id)
	}
	return nil
}

func (s *Source) handleFix(p geo.Point) {
	metrics.FixesTotal.Inc()
	metrics.LocationEnabled.Set(1)
	logging.Trace(s.logger, "Fix", "lat", p.Lat, "lon", p.Lon)

	s.publish(func(st *model.PositionStatus) {
		fix := p
		st.Coordinate = &fix
		st.Enabled = true
		st.Error = model.ErrorNone
	})
}

func (s *Source) handleError(kind model.ErrorKind) {
	if kind == model.ErrorNone {
		kind = model.ErrorInternal
	}
	metrics.WatchErrors.WithLabelValues(string(kind)).Inc()
	metrics.LocationEnabled.Set(0)
	s.logger.Warn("Position watch failure", "kind", kind)

	// Coordinate is left at its last known value.
	s.publish(func(st *model.PositionStatus) {
		st.Enabled = false
		st.Error = kind
	})
}

// publish applies a change and delivers the resulting status to all subscribers.
// Changes after Close are dropped.
func (s *Source) publish(apply func(*model.PositionStatus)) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	apply(&s.status)
	snapshot := copyStatus(s.status)
	subs := make([]func(model.PositionStatus), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Status returns the latest PositionStatus.
func (s *Source) Status() model.PositionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStatus(s.status)
}

// Granted reports whether permission was granted by a resolved Initialize.
func (s *Source) Granted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted
}

// Resolved reports whether Initialize has reached a final permission answer.
func (s *Source) Resolved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Subscribe registers fn for every status change and returns a function that
// removes it. Subscribers are called in registration order.
func (s *Source) Subscribe(fn func(model.PositionStatus)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close cancels the position watch. After Close returns no subscriber observes
// another update. Closing twice, or closing a source whose watch never
// started, is a no-op.
func (s *Source) Close() {
	s.dispatchMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.dispatchMu.Unlock()
		return
	}
	s.closed = true
	watching, id := s.watching, s.watchID
	s.subs = make(map[int]func(model.PositionStatus))
	s.mu.Unlock()
	s.dispatchMu.Unlock()

	// Clear outside dispatchMu: a sensor may wait for its own callback
	// goroutine, which can be blocked on dispatchMu.
	if watching {
		s.watcher.Clear(id)
		s.logger.Info("Position watch cleared")
	}
	metrics.LocationEnabled.Set(0)
}

func copyStatus(st model.PositionStatus) model.PositionStatus {
	if st.Coordinate != nil {
		c := *st.Coordinate
		st.Coordinate = &c
	}
	return st
}
