// Package location owns the device positioning subsystem: permission
// acquisition, the standing position watch and the published PositionStatus.
package location

import (
	"context"
	"errors"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

// ErrWatchUnavailable is returned by a Watcher that cannot register a watch.
var ErrWatchUnavailable = errors.New("position watch unavailable")

// WatchID identifies a registered watch.
type WatchID int64

// WatchOptions configures a position watch.
type WatchOptions struct {
	HighAccuracy          bool
	MinDisplacementMeters float64
}

// Watcher is the sensor subsystem. Callbacks for one watch are delivered
// sequentially and stop once Clear returns.
type Watcher interface {
	Watch(opts WatchOptions, onFix func(geo.Point), onError func(model.ErrorKind)) (WatchID, error)
	Clear(id WatchID)
}

// PermissionProvider checks and requests the fine-location permission.
// Request may block until the user answers; an error means the request is
// still unresolved.
type PermissionProvider interface {
	Check(ctx context.Context) (bool, error)
	Request(ctx context.Context) (bool, error)
}

// StaticPermission is a PermissionProvider with a fixed answer.
type StaticPermission bool

// Check implements PermissionProvider.
func (p StaticPermission) Check(ctx context.Context) (bool, error) { return bool(p), nil }

// Request implements PermissionProvider.
func (p StaticPermission) Request(ctx context.Context) (bool, error) { return bool(p), nil }

// DisplacementFilter drops fixes closer than Min meters to the last accepted one.
// It is not safe for concurrent use; sensors keep one per watch.
type DisplacementFilter struct {
	Min  float64
	last *geo.Point
}

// Accept reports whether p should be delivered and records it if so.
func (f *DisplacementFilter) Accept(p geo.Point) bool {
	if f.last != nil && f.Min > 0 && geo.Distance(*f.last, p) < f.Min {
		return false
	}
	f.last = &p
	return true
}

// Reset forgets the last accepted fix.
func (f *DisplacementFilter) Reset() {
	f.last = nil
}
