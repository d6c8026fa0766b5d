// Package catalog supplies the ordered point lists the session evaluates.
//
// A query names a center, a radius and a page. The radius is the user-facing
// "search around me" setting: 0 to 25 km in steps of 0.1 km.
package catalog

import (
	"context"
	"errors"
	"math"
	"sort"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

const (
	// MaxRadiusKm is the largest search radius accepted.
	MaxRadiusKm = 25.0
	// RadiusStepKm is the granularity of the search radius.
	RadiusStepKm = 0.1
	// MaxPageSize bounds a single page.
	MaxPageSize = 500
)

// ErrPointNotFound is returned by Get for an unknown id.
var ErrPointNotFound = errors.New("point not found")

// Page selects one page of points around Center.
// Number is 1-based.
type Page struct {
	Center   geo.Point
	RadiusKm float64
	Number   int
	Size     int
}

// PointPage is one page of a query result, ordered by distance from the
// center and then by id.
type PointPage struct {
	Points   []model.Point `json:"points"`
	Total    int           `json:"total"`
	Number   int           `json:"page"`
	Size     int           `json:"size"`
	RadiusKm float64       `json:"radius_km"`
}

// Catalog is a point source.
type Catalog interface {
	Query(ctx context.Context, page Page) (PointPage, error)
	Get(ctx context.Context, id string) (model.Point, error)
}

// NormalizeRadius clamps km into [0, MaxRadiusKm] and rounds it to the
// nearest RadiusStepKm. NaN becomes 0.
func NormalizeRadius(km float64) float64 {
	if math.IsNaN(km) || km <= 0 {
		return 0
	}
	if km >= MaxRadiusKm {
		return MaxRadiusKm
	}
	return math.Round(km*10) / 10
}

// normalize fills defaults and clamps the page request.
func (p Page) normalize(defaultSize int) Page {
	p.RadiusKm = NormalizeRadius(p.RadiusKm)
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// paginate filters candidates to the radius, orders them and cuts out the page.
func paginate(candidates []model.Point, p Page) PointPage {
	radiusM := p.RadiusKm * 1000

	type hit struct {
		point model.Point
		dist  float64
	}
	hits := make([]hit, 0, len(candidates))
	for _, c := range candidates {
		d := geo.Distance(p.Center, c.Location)
		if d <= radiusM {
			hits = append(hits, hit{c, d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].point.ID < hits[j].point.ID
	})

	out := PointPage{
		Points:   []model.Point{},
		Total:    len(hits),
		Number:   p.Number,
		Size:     p.Size,
		RadiusKm: p.RadiusKm,
	}
	start := (p.Number - 1) * p.Size
	if start >= len(hits) {
		return out
	}
	end := start + p.Size
	if end > len(hits) {
		end = len(hits)
	}
	for _, h := range hits[start:end] {
		out.Points = append(out.Points, h.point)
	}
	return out
}
