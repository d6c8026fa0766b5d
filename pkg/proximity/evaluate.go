// Package proximity decides which point of interest the user is at.
//
// Evaluate is a pure function of the current PositionStatus and point list.
// Tracker layers the session's transition state on top: the active point and
// the set of points already presented.
package proximity

import (
	"encoding/json"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

// Result is the outcome of one evaluation.
// Distance is only meaningful when HasDistance is true.
type Result struct {
	Nearest     *model.Point
	Distance    float64
	HasDistance bool
	Reached     bool
}

// Empty reports whether no point was selected.
func (r Result) Empty() bool {
	return r.Nearest == nil
}

// MarshalJSON encodes an undefined distance as null.
func (r Result) MarshalJSON() ([]byte, error) {
	var dist *float64
	if r.HasDistance {
		d := r.Distance
		dist = &d
	}
	return json.Marshal(struct {
		Nearest  *model.Point `json:"nearest"`
		Distance *float64     `json:"distance"`
		Reached  bool         `json:"reached"`
	}{r.Nearest, dist, r.Reached})
}

// Evaluate finds the nearest point to the current coordinate and whether it
// lies within its activation radius (inclusive). A disabled status, a missing
// coordinate or an empty list yields an empty Result. Equidistant points
// resolve to the first one in list order.
func Evaluate(status model.PositionStatus, points []model.Point) Result {
	if !status.Enabled || status.Coordinate == nil || len(points) == 0 {
		return Result{}
	}

	pos := *status.Coordinate
	best := -1
	bestDist := 0.0
	for i := range points {
		d := geo.Distance(pos, points[i].Location)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}

	nearest := points[best]
	return Result{
		Nearest:     &nearest,
		Distance:    bestDist,
		HasDistance: true,
		Reached:     bestDist <= nearest.ActivationRadius,
	}
}

// DistanceTo returns the distance in meters from the last known coordinate to
// p. A stale coordinate is still used; ok is false only when no fix was ever
// observed.
func DistanceTo(status model.PositionStatus, p model.Point) (dist float64, ok bool) {
	if status.Coordinate == nil {
		return 0, false
	}
	return geo.Distance(*status.Coordinate, p.Location), true
}
