package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/uber/h3-go/v4"

	"geoguide/pkg/metrics"
	"geoguide/pkg/model"
)

// avgEdgeMeters is the average H3 hexagon edge length per resolution.
var avgEdgeMeters = [...]float64{
	1107712.59, 418676.01, 158244.66, 59810.86, 22606.38, 8544.41,
	3229.48, 1220.63, 461.35, 174.38, 65.91, 24.91, 9.42, 3.56, 1.35, 0.51,
}

// maxDiskK bounds the ring search; larger radii fall back to a full scan.
const maxDiskK = 60

// IndexCatalog is an in-memory catalog with points bucketed by H3 cell.
type IndexCatalog struct {
	mu          sync.RWMutex
	res         int
	cells       map[h3.Cell][]model.Point
	byID        map[string]model.Point
	all         []model.Point
	defaultSize int
	logger      *slog.Logger
}

// NewIndexCatalog creates an empty index at the given H3 resolution.
func NewIndexCatalog(resolution, defaultPageSize int) *IndexCatalog {
	if resolution < 0 || resolution >= len(avgEdgeMeters) {
		resolution = 7
	}
	return &IndexCatalog{
		res:         resolution,
		cells:       make(map[h3.Cell][]model.Point),
		byID:        make(map[string]model.Point),
		defaultSize: defaultPageSize,
		logger:      slog.With("component", "catalog", "backend", "index"),
	}
}

// Load replaces the indexed points. Points with an invalid location are skipped.
func (c *IndexCatalog) Load(points []model.Point) error {
	cells := make(map[h3.Cell][]model.Point)
	byID := make(map[string]model.Point, len(points))
	all := make([]model.Point, 0, len(points))

	for _, p := range points {
		if !p.Location.Valid() {
			c.logger.Warn("Skipping point with invalid location", "id", p.ID)
			continue
		}
		cell, err := h3.LatLngToCell(h3.NewLatLng(p.Location.Lat, p.Location.Lon), c.res)
		if err != nil {
			return fmt.Errorf("failed to index point %q: %w", p.ID, err)
		}
		cells[cell] = append(cells[cell], p)
		byID[p.ID] = p
		all = append(all, p)
	}

	c.mu.Lock()
	c.cells, c.byID, c.all = cells, byID, all
	c.mu.Unlock()

	c.logger.Info("Catalog indexed", "points", len(all), "cells", len(cells), "resolution", c.res)
	return nil
}

// Len returns the number of indexed points.
func (c *IndexCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.all)
}

// Query collects the points of every cell within reach of the radius and
// filters them by exact distance.
func (c *IndexCatalog) Query(ctx context.Context, page Page) (PointPage, error) {
	page = page.normalize(c.defaultSize)
	if page.RadiusKm == 0 {
		metrics.CatalogQueries.WithLabelValues("index", "empty").Inc()
		return paginate(nil, page), nil
	}

	candidates, err := c.candidates(page)
	if err != nil {
		metrics.CatalogQueries.WithLabelValues("index", "error").Inc()
		return PointPage{}, err
	}

	out := paginate(candidates, page)
	metrics.CatalogQueries.WithLabelValues("index", resultLabel(out)).Inc()
	return out, nil
}

func (c *IndexCatalog) candidates(page Page) ([]model.Point, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	k := diskK(page.RadiusKm*1000, avgEdgeMeters[c.res])
	if k > maxDiskK {
		return c.all, nil
	}

	origin, err := h3.LatLngToCell(h3.NewLatLng(page.Center.Lat, page.Center.Lon), c.res)
	if err != nil {
		return nil, fmt.Errorf("invalid query center: %w", err)
	}
	disk, err := h3.GridDisk(origin, k)
	if err != nil {
		return nil, fmt.Errorf("failed to expand grid disk: %w", err)
	}

	var out []model.Point
	for _, cell := range disk {
		out = append(out, c.cells[cell]...)
	}
	return out, nil
}

// diskK returns the ring count whose disk covers radius around any point of
// the origin cell. A ring adds at least 1.5 edge lengths; edges may be 20%
// shorter than the resolution average.
func diskK(radiusMeters, edgeMeters float64) int {
	return int(math.Ceil(radiusMeters/(edgeMeters*1.2))) + 1
}

// Get returns a single point by id.
func (c *IndexCatalog) Get(ctx context.Context, id string) (model.Point, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return model.Point{}, fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}
	return p, nil
}
