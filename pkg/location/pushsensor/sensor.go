// Package pushsensor is a location.Watcher fed by a client device over the API.
// The device owns the real GPS and permission dialog; this side relays what it
// reports.
package pushsensor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"geoguide/pkg/geo"
	"geoguide/pkg/location"
	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
)

var (
	// ErrInvalidFix is returned for coordinates outside the WGS84 range.
	ErrInvalidFix = errors.New("invalid fix")
	// ErrNoWatch is returned when a report arrives while nothing is watching.
	ErrNoWatch = errors.New("no active watch")
)

type permState int

const (
	permUnknown permState = iota
	permGranted
	permDenied
)

type watch struct {
	opts    location.WatchOptions
	filter  *location.DisplacementFilter
	onFix   func(geo.Point)
	onError func(model.ErrorKind)
}

// Sensor implements location.Watcher and location.PermissionProvider.
type Sensor struct {
	mu      sync.Mutex
	nextID  location.WatchID
	watches map[location.WatchID]*watch
	perm    permState
	permCh  chan struct{} // closed and replaced on every permission report
	waiting int

	// deliverMu serializes callbacks so fixes reach watchers in arrival order.
	deliverMu sync.Mutex

	logger *slog.Logger
}

// New creates a push sensor with an unknown permission state.
func New() *Sensor {
	return &Sensor{
		watches: make(map[location.WatchID]*watch),
		permCh:  make(chan struct{}),
		logger:  slog.With("component", "pushsensor"),
	}
}

// Check reports whether the device has granted permission.
func (s *Sensor) Check(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm == permGranted, nil
}

// Request waits for the device to report a permission answer. A report that
// already arrived is returned immediately. An expired ctx leaves the request
// unresolved.
func (s *Sensor) Request(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.perm != permUnknown {
		granted := s.perm == permGranted
		s.mu.Unlock()
		return granted, nil
	}
	ch := s.permCh
	s.waiting++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.waiting--
		s.mu.Unlock()
	}()

	select {
	case <-ch:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.perm == permGranted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PermissionPending reports whether a Request is waiting for the device.
func (s *Sensor) PermissionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting > 0
}

// ReportPermission records the device's answer and wakes pending requests.
func (s *Sensor) ReportPermission(granted bool) {
	s.mu.Lock()
	if granted {
		s.perm = permGranted
	} else {
		s.perm = permDenied
	}
	close(s.permCh)
	s.permCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Device reported location permission", "granted", granted)
}

// Watch implements location.Watcher.
func (s *Sensor) Watch(opts location.WatchOptions, onFix func(geo.Point), onError func(model.ErrorKind)) (location.WatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.watches[s.nextID] = &watch{
		opts:    opts,
		filter:  &location.DisplacementFilter{Min: opts.MinDisplacementMeters},
		onFix:   onFix,
		onError: onError,
	}
	return s.nextID, nil
}

// Clear implements location.Watcher. It returns after any in-flight delivery
// to the watch has finished.
func (s *Sensor) Clear(id location.WatchID) {
	s.mu.Lock()
	delete(s.watches, id)
	s.mu.Unlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
}

// Active reports whether any watch is registered.
func (s *Sensor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches) > 0
}

// PushFix delivers a device fix to every watch. Fixes within a watch's
// minimum displacement of its previous fix are dropped. It reports whether
// any watch accepted the fix.
func (s *Sensor) PushFix(p geo.Point) (bool, error) {
	if !p.Valid() {
		return false, ErrInvalidFix
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	targets := s.snapshot()
	if len(targets) == 0 {
		return false, ErrNoWatch
	}

	accepted := false
	for _, w := range targets {
		if !w.filter.Accept(p) {
			metrics.FixesFiltered.WithLabelValues("push").Inc()
			continue
		}
		accepted = true
		w.onFix(p)
	}
	return accepted, nil
}

// PushError delivers a device-side watch failure to every watch.
func (s *Sensor) PushError(kind model.ErrorKind) error {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	targets := s.snapshot()
	if len(targets) == 0 {
		return ErrNoWatch
	}
	for _, w := range targets {
		w.onError(kind)
	}
	return nil
}

func (s *Sensor) snapshot() []*watch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*watch, 0, len(s.watches))
	for id := location.WatchID(1); id <= s.nextID; id++ {
		if w, ok := s.watches[id]; ok {
			out = append(out, w)
		}
	}
	return out
}
