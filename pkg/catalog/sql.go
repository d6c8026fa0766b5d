package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"geoguide/pkg/geo"
	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
	"geoguide/pkg/store"
)

// SQLCatalog serves queries from the sqlite points table.
type SQLCatalog struct {
	store       store.PointStore
	defaultSize int
	logger      *slog.Logger
}

// NewSQLCatalog creates a catalog over st.
func NewSQLCatalog(st store.PointStore, defaultPageSize int) *SQLCatalog {
	return &SQLCatalog{
		store:       st,
		defaultSize: defaultPageSize,
		logger:      slog.With("component", "catalog", "backend", "sqlite"),
	}
}

// Query loads the bounding box around the center and filters it by exact distance.
func (c *SQLCatalog) Query(ctx context.Context, page Page) (PointPage, error) {
	page = page.normalize(c.defaultSize)
	if page.RadiusKm == 0 {
		metrics.CatalogQueries.WithLabelValues("sqlite", "empty").Inc()
		return paginate(nil, page), nil
	}

	bound := geo.BoundAround(page.Center, page.RadiusKm*1000)
	var candidates []model.Point
	for _, r := range lonRanges(bound.Min.Lon(), bound.Max.Lon()) {
		pts, err := c.store.PointsInBounds(ctx, bound.Min.Lat(), bound.Max.Lat(), r[0], r[1])
		if err != nil {
			metrics.CatalogQueries.WithLabelValues("sqlite", "error").Inc()
			return PointPage{}, fmt.Errorf("failed to query points: %w", err)
		}
		candidates = append(candidates, pts...)
	}

	out := paginate(candidates, page)
	metrics.CatalogQueries.WithLabelValues("sqlite", resultLabel(out)).Inc()
	c.logger.Debug("Catalog query",
		"lat", page.Center.Lat, "lon", page.Center.Lon,
		"radius_km", page.RadiusKm, "candidates", len(candidates), "total", out.Total)
	return out, nil
}

// Get returns a single point by id.
func (c *SQLCatalog) Get(ctx context.Context, id string) (model.Point, error) {
	p, err := c.store.GetPoint(ctx, id)
	if err != nil {
		return model.Point{}, fmt.Errorf("failed to load point %q: %w", id, err)
	}
	if p == nil {
		return model.Point{}, fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	return *p, nil
}

// lonRanges splits a longitude span that crosses the antimeridian.
func lonRanges(minLon, maxLon float64) [][2]float64 {
	switch {
	case maxLon-minLon >= 360:
		return [][2]float64{{-180, 180}}
	case minLon < -180:
		return [][2]float64{{minLon + 360, 180}, {-180, maxLon}}
	case maxLon > 180:
		return [][2]float64{{minLon, 180}, {-180, maxLon - 360}}
	}
	return [][2]float64{{minLon, maxLon}}
}

func resultLabel(p PointPage) string {
	if p.Total == 0 {
		return "empty"
	}
	return "hit"
}
