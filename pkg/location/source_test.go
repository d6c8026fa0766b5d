package location

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

type fakePermission struct {
	checkGranted bool
	reqGranted   bool
	reqErr       error
	checks       int
	requests     int
}

func (p *fakePermission) Check(ctx context.Context) (bool, error) {
	p.checks++
	return p.checkGranted, nil
}

func (p *fakePermission) Request(ctx context.Context) (bool, error) {
	p.requests++
	return p.reqGranted, p.reqErr
}

type fakeWatcher struct {
	mu      sync.Mutex
	opts    WatchOptions
	onFix   func(geo.Point)
	onError func(model.ErrorKind)
	watches int
	clears  []WatchID
	err     error
}

func (w *fakeWatcher) Watch(opts WatchOptions, onFix func(geo.Point), onError func(model.ErrorKind)) (WatchID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.watches++
	w.opts = opts
	w.onFix = onFix
	w.onError = onError
	return WatchID(w.watches), nil
}

func (w *fakeWatcher) Clear(id WatchID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clears = append(w.clears, id)
}

func (w *fakeWatcher) fix(lat, lon float64) {
	w.onFix(geo.Point{Lat: lat, Lon: lon})
}

func (w *fakeWatcher) fail(kind model.ErrorKind) {
	w.onError(kind)
}

var defaultOpts = WatchOptions{HighAccuracy: true, MinDisplacementMeters: 1}

func initialized(t *testing.T, granted bool) (*Source, *fakeWatcher) {
	t.Helper()
	w := &fakeWatcher{}
	src := NewSource(StaticPermission(granted), w, defaultOpts)
	if got := src.Initialize(context.Background()); got != granted {
		t.Fatalf("Initialize() = %v, want %v", got, granted)
	}
	return src, w
}

func TestSource_Initialize(t *testing.T) {
	tests := []struct {
		name         string
		perm         *fakePermission
		wantGranted  bool
		wantResolved bool
		wantWatches  int
		wantRequests int
		wantError    model.ErrorKind
	}{
		{
			name:         "AlreadyGranted_NoPrompt",
			perm:         &fakePermission{checkGranted: true},
			wantGranted:  true,
			wantResolved: true,
			wantWatches:  1,
			wantRequests: 0,
		},
		{
			name:         "GrantedOnRequest",
			perm:         &fakePermission{reqGranted: true},
			wantGranted:  true,
			wantResolved: true,
			wantWatches:  1,
			wantRequests: 1,
		},
		{
			name:         "Denied",
			perm:         &fakePermission{},
			wantGranted:  false,
			wantResolved: true,
			wantWatches:  0,
			wantRequests: 1,
			wantError:    model.ErrorPermissionDenied,
		},
		{
			name:         "RequestUnresolved",
			perm:         &fakePermission{reqErr: context.DeadlineExceeded},
			wantGranted:  false,
			wantResolved: false,
			wantWatches:  0,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWatcher{}
			src := NewSource(tt.perm, w, defaultOpts)

			if got := src.Initialize(context.Background()); got != tt.wantGranted {
				t.Errorf("Initialize() = %v, want %v", got, tt.wantGranted)
			}
			if got := src.Resolved(); got != tt.wantResolved {
				t.Errorf("Resolved() = %v, want %v", got, tt.wantResolved)
			}
			if w.watches != tt.wantWatches {
				t.Errorf("watches = %d, want %d", w.watches, tt.wantWatches)
			}
			if tt.perm.requests != tt.wantRequests {
				t.Errorf("requests = %d, want %d", tt.perm.requests, tt.wantRequests)
			}

			st := src.Status()
			if st.Enabled {
				t.Error("enabled must stay false until the first fix")
			}
			if st.Error != tt.wantError {
				t.Errorf("error = %q, want %q", st.Error, tt.wantError)
			}
			if tt.wantWatches > 0 && w.opts != defaultOpts {
				t.Errorf("watch options = %+v, want %+v", w.opts, defaultOpts)
			}
		})
	}
}

func TestSource_InitializeIsIdempotent(t *testing.T) {
	perm := &fakePermission{reqGranted: true}
	w := &fakeWatcher{}
	src := NewSource(perm, w, defaultOpts)

	for i := 0; i < 3; i++ {
		if !src.Initialize(context.Background()) {
			t.Fatalf("Initialize() call %d = false, want true", i)
		}
	}
	if perm.checks != 1 {
		t.Errorf("checks = %d, want 1", perm.checks)
	}
	if perm.requests != 1 {
		t.Errorf("requests = %d, want 1: the user is prompted at most once", perm.requests)
	}
	if w.watches != 1 {
		t.Errorf("watches = %d, want 1", w.watches)
	}
}

func TestSource_UnresolvedRequestRetries(t *testing.T) {
	perm := &fakePermission{reqErr: errors.New("dialog dismissed")}
	w := &fakeWatcher{}
	src := NewSource(perm, w, defaultOpts)

	if src.Initialize(context.Background()) {
		t.Fatal("Initialize() = true with an unresolved request")
	}
	perm.reqErr = nil
	perm.reqGranted = true
	if !src.Initialize(context.Background()) {
		t.Fatal("second Initialize() = false, want true")
	}
	if perm.requests != 2 || w.watches != 1 {
		t.Errorf("requests = %d, watches = %d, want 2, 1", perm.requests, w.watches)
	}
}

func TestSource_WatchFailureLeavesUnresolved(t *testing.T) {
	perm := &fakePermission{checkGranted: true}
	w := &fakeWatcher{err: ErrWatchUnavailable}
	src := NewSource(perm, w, defaultOpts)

	if !src.Initialize(context.Background()) {
		t.Error("Initialize() = false, want true: permission was granted")
	}
	if src.Resolved() {
		t.Error("Resolved() = true after the watch failed to start")
	}
	if got := src.Status().Error; got != model.ErrorServiceUnavailable {
		t.Errorf("error = %q, want %q", got, model.ErrorServiceUnavailable)
	}

	w.err = nil
	if !src.Initialize(context.Background()) || !src.Resolved() {
		t.Error("retry after the sensor came back did not resolve")
	}
	if w.watches != 1 {
		t.Errorf("watches = %d, want 1", w.watches)
	}
}

func TestSource_FixAndErrorTransitions(t *testing.T) {
	src, w := initialized(t, true)

	var seen []model.PositionStatus
	src.Subscribe(func(st model.PositionStatus) { seen = append(seen, st) })

	steps := []struct {
		name        string
		apply       func()
		wantEnabled bool
		wantError   model.ErrorKind
		wantCoord   geo.Point
	}{
		{"FirstFix", func() { w.fix(1, 2) }, true, model.ErrorNone, geo.Point{Lat: 1, Lon: 2}},
		// A failure keeps the stale coordinate.
		{"Failure", func() { w.fail(model.ErrorPositionUnavailable) }, false, model.ErrorPositionUnavailable, geo.Point{Lat: 1, Lon: 2}},
		{"Recovery", func() { w.fix(1.5, 2.5) }, true, model.ErrorNone, geo.Point{Lat: 1.5, Lon: 2.5}},
	}
	for _, s := range steps {
		s.apply()
		st := src.Status()
		if st.Enabled != s.wantEnabled || st.Error != s.wantError {
			t.Errorf("%s: enabled = %v, error = %q, want %v, %q", s.name, st.Enabled, st.Error, s.wantEnabled, s.wantError)
		}
		if st.Coordinate == nil || *st.Coordinate != s.wantCoord {
			t.Errorf("%s: coordinate = %v, want %v", s.name, st.Coordinate, s.wantCoord)
		}
	}

	if len(w.clears) != 0 {
		t.Errorf("clears = %v: a sensor failure must not cancel the watch", w.clears)
	}
	if len(seen) != len(steps) {
		t.Fatalf("subscriber saw %d updates, want %d", len(seen), len(steps))
	}
	for i, s := range seen {
		if s.Error != model.ErrorNone && s.Enabled {
			t.Errorf("update %d: error %q with enabled=true", i, s.Error)
		}
	}
}

func TestSource_ErrorNoneIsTreatedAsInternal(t *testing.T) {
	src, w := initialized(t, true)

	w.fail(model.ErrorNone)
	if got := src.Status().Error; got != model.ErrorInternal {
		t.Errorf("error = %q, want %q", got, model.ErrorInternal)
	}
}

func TestSource_StatusIsACopy(t *testing.T) {
	src, w := initialized(t, true)
	w.fix(10, 20)

	st := src.Status()
	st.Coordinate.Lat = 99
	if got := src.Status().Coordinate.Lat; got != 10 {
		t.Errorf("lat = %v, want 10", got)
	}
}

func TestSource_Unsubscribe(t *testing.T) {
	src, w := initialized(t, true)

	calls := 0
	unsub := src.Subscribe(func(model.PositionStatus) { calls++ })
	w.fix(0, 0)
	unsub()
	w.fix(0, 1)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSource_Close(t *testing.T) {
	t.Run("StopsUpdates", func(t *testing.T) {
		src, w := initialized(t, true)

		calls := 0
		src.Subscribe(func(model.PositionStatus) { calls++ })
		w.fix(0, 0)
		src.Close()

		// A late callback from the sensor after Close is dropped.
		w.fix(0, 1)
		w.fail(model.ErrorTimeout)
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if !reflect.DeepEqual(w.clears, []WatchID{1}) {
			t.Errorf("clears = %v, want [1]", w.clears)
		}
	})

	t.Run("ExactlyOnce", func(t *testing.T) {
		src, w := initialized(t, true)

		src.Close()
		src.Close()
		if len(w.clears) != 1 {
			t.Errorf("clears = %v, want one", w.clears)
		}
	})

	t.Run("NeverStarted", func(t *testing.T) {
		src, w := initialized(t, false)

		src.Close()
		if len(w.clears) != 0 {
			t.Errorf("clears = %v, want none", w.clears)
		}
	})

	t.Run("InitializeAfterClose", func(t *testing.T) {
		w := &fakeWatcher{}
		src := NewSource(StaticPermission(true), w, defaultOpts)
		src.Close()

		if src.Initialize(context.Background()) {
			t.Error("Initialize() after Close = true, want false")
		}
		if w.watches != 0 {
			t.Errorf("watches = %d, want 0", w.watches)
		}
	})
}

func TestDisplacementFilter(t *testing.T) {
	origin := geo.Point{Lat: 48.0, Lon: 11.0}
	last := geo.DestinationPoint(origin, 1.5, 90)

	f := &DisplacementFilter{Min: 1}
	steps := []struct {
		name string
		p    geo.Point
		want bool
	}{
		{"FirstFixAlwaysPasses", origin, true},
		{"BelowMin", geo.DestinationPoint(origin, 0.5, 90), false},
		{"AboveMin", last, true},
		// Measured from the last accepted fix, not the last seen one.
		{"BelowMinFromLastAccepted", geo.DestinationPoint(last, 0.9, 0), false},
	}
	for _, s := range steps {
		if got := f.Accept(s.p); got != s.want {
			t.Errorf("%s: Accept() = %v, want %v", s.name, got, s.want)
		}
	}

	f.Reset()
	if !f.Accept(last) {
		t.Error("Accept() after Reset = false, want true")
	}

	none := &DisplacementFilter{}
	if !none.Accept(origin) || !none.Accept(origin) {
		t.Error("a zero Min filter must accept every fix")
	}
}
