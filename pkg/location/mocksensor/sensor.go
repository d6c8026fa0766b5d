// Package mocksensor simulates a walking device for development without a phone.
package mocksensor

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"geoguide/pkg/geo"
	"geoguide/pkg/location"
	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
)

// Config holds the simulated walk.
type Config struct {
	Start          geo.Point
	Route          []geo.Point
	SpeedMPS       float64
	Tick           time.Duration
	FailEvery      int // every Nth tick reports position_unavailable instead of a fix, 0 = never
	JitterMeters   float64
	Loop           bool
	DenyPermission bool
}

// Sensor implements location.Watcher and location.PermissionProvider.
type Sensor struct {
	mu      sync.Mutex
	cfg     Config
	nextID  location.WatchID
	watches map[location.WatchID]*walk
	logger  *slog.Logger
}

type walk struct {
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a mock sensor. No goroutine runs until Watch.
func New(cfg Config) *Sensor {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &Sensor{
		cfg:     cfg,
		watches: make(map[location.WatchID]*walk),
		logger:  slog.With("component", "mocksensor"),
	}
}

// Check implements location.PermissionProvider.
func (s *Sensor) Check(ctx context.Context) (bool, error) {
	return !s.cfg.DenyPermission, nil
}

// Request implements location.PermissionProvider.
func (s *Sensor) Request(ctx context.Context) (bool, error) {
	return !s.cfg.DenyPermission, nil
}

// Watch starts a walk along the configured route. The first fix is the start
// position and is delivered on the first tick.
func (s *Sensor) Watch(opts location.WatchOptions, onFix func(geo.Point), onError func(model.ErrorKind)) (location.WatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	w := &walk{stopCh: make(chan struct{})}
	s.watches[id] = w

	wk := newWalker(s.cfg)
	filter := &location.DisplacementFilter{Min: opts.MinDisplacementMeters}

	w.wg.Add(1)
	go s.loop(w, wk, filter, onFix, onError)

	s.logger.Info("Mock walk started",
		"lat", s.cfg.Start.Lat, "lon", s.cfg.Start.Lon,
		"waypoints", len(s.cfg.Route), "speed_mps", s.cfg.SpeedMPS)
	return id, nil
}

// Clear stops the walk. It waits for the walk goroutine, so it must not be
// called from inside a callback of the same watch.
func (s *Sensor) Clear(id location.WatchID) {
	s.mu.Lock()
	w, ok := s.watches[id]
	delete(s.watches, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	close(w.stopCh)
	w.wg.Wait()
}

// Close stops every running walk.
func (s *Sensor) Close() error {
	s.mu.Lock()
	ids := make([]location.WatchID, 0, len(s.watches))
	for id := range s.watches {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Clear(id)
	}
	return nil
}

func (s *Sensor) loop(w *walk, wk *walker, filter *location.DisplacementFilter, onFix func(geo.Point), onError func(model.ErrorKind)) {
	defer w.wg.Done()
	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	tick := 0
	stepMeters := s.cfg.SpeedMPS * s.cfg.Tick.Seconds()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
		}

		tick++
		var pos geo.Point
		if tick == 1 {
			pos = wk.pos
		} else {
			pos = wk.advance(stepMeters)
		}

		if s.cfg.FailEvery > 0 && tick%s.cfg.FailEvery == 0 {
			onError(model.ErrorPositionUnavailable)
			continue
		}

		if s.cfg.JitterMeters > 0 {
			pos = geo.DestinationPoint(pos, rand.Float64()*s.cfg.JitterMeters, rand.Float64()*360.0)
		}
		if !filter.Accept(pos) {
			metrics.FixesFiltered.WithLabelValues("mock").Inc()
			continue
		}
		onFix(pos)
	}
}

// walker moves along a polyline at constant speed.
type walker struct {
	pos   geo.Point
	route []geo.Point
	leg   int // index of the next waypoint
	loop  bool
}

func newWalker(cfg Config) *walker {
	return &walker{
		pos:   cfg.Start,
		route: cfg.Route,
		loop:  cfg.Loop,
	}
}

// advance moves dist meters toward the next waypoints and returns the new position.
func (w *walker) advance(dist float64) geo.Point {
	idle := 0 // consecutive waypoints reached without covering distance
	for dist > 0 && w.leg < len(w.route) && idle <= len(w.route) {
		target := w.route[w.leg]
		remaining := geo.Distance(w.pos, target)
		if remaining > dist {
			w.pos = geo.DestinationPoint(w.pos, dist, geo.Bearing(w.pos, target))
			return w.pos
		}

		if remaining == 0 {
			idle++
		} else {
			idle = 0
		}
		w.pos = target
		dist -= remaining
		w.leg++
		if w.leg == len(w.route) && w.loop {
			w.leg = 0
		}
	}
	return w.pos
}
