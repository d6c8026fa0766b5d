package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// LoadOptions controls how file attributes become points.
type LoadOptions struct {
	// DefaultRadius is used when a feature has no radius attribute (meters).
	DefaultRadius float64
}

// Attribute names recognized on GeoJSON properties and shapefile fields,
// in order of preference. Shapefile field names are at most 10 characters.
var (
	idKeys          = []string{"id", "ID", "point_id"}
	titleKeys       = []string{"title", "name", "TITLE", "NAME"}
	descriptionKeys = []string{"description", "desc", "DESCR"}
	categoryKeys    = []string{"category", "CATEGORY", "type"}
	radiusKeys      = []string{"radius", "activation_radius", "radius_m", "RADIUS"}
	mediaKeys       = []string{"media", "audio", "media_uri", "MEDIA"}
	mediaKindKeys   = []string{"media_kind", "MEDIA_KIND"}
	thumbnailKeys   = []string{"thumbnail", "thumbnail_url", "THUMB"}
)

// LoadFile reads a .geojson/.json or .shp file.
func LoadFile(path string, opts LoadOptions) ([]model.Point, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return LoadGeoJSON(path, opts)
	case ".shp":
		return LoadShapefile(path, opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// LoadGeoJSON reads a FeatureCollection. Non-point geometries are placed at
// the center of their bounding box.
func LoadGeoJSON(path string, opts LoadOptions) ([]model.Point, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson: %w", err)
	}
	return ParseGeoJSON(data, opts)
}

// ParseGeoJSON decodes a FeatureCollection.
func ParseGeoJSON(data []byte, opts LoadOptions) ([]model.Point, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson: %w", err)
	}

	points := make([]model.Point, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		loc := geometryLocation(f.Geometry)

		attrs := func(keys []string) string {
			for _, k := range keys {
				if v, ok := f.Properties[k]; ok && v != nil {
					if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
						return s
					}
				}
			}
			return ""
		}

		id := attrs(idKeys)
		if id == "" && f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		p, err := buildPoint(id, loc, attrs, opts)
		if err != nil {
			slog.Warn("Skipping geojson feature", "index", i, "error", err)
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// LoadShapefile reads a point layer. Fields are matched by name like GeoJSON properties.
func LoadShapefile(path string, opts LoadOptions) ([]model.Point, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shape.Close()

	fields := shape.Fields()
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[strings.TrimRight(f.String(), "\x00 ")] = i
	}

	var points []model.Point
	for shape.Next() {
		n, s := shape.Shape()

		var loc geo.Point
		switch g := s.(type) {
		case *shp.Null:
			continue
		case *shp.Point:
			loc = geo.Point{Lat: g.Y, Lon: g.X}
		case *shp.PointZ:
			loc = geo.Point{Lat: g.Y, Lon: g.X}
		case *shp.PointM:
			loc = geo.Point{Lat: g.Y, Lon: g.X}
		default:
			box := s.BBox()
			loc = geo.Point{Lat: (box.MinY + box.MaxY) / 2, Lon: (box.MinX + box.MaxX) / 2}
		}

		attrs := func(keys []string) string {
			for _, k := range keys {
				if i, ok := index[k]; ok {
					if v := strings.TrimSpace(shape.ReadAttribute(n, i)); v != "" {
						return v
					}
				}
			}
			return ""
		}

		p, err := buildPoint(attrs(idKeys), loc, attrs, opts)
		if err != nil {
			slog.Warn("Skipping shapefile record", "index", n, "error", err)
			continue
		}
		points = append(points, p)
	}
	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}
	return points, nil
}

func geometryLocation(g orb.Geometry) geo.Point {
	if p, ok := g.(orb.Point); ok {
		return geo.FromOrb(p)
	}
	return geo.FromOrb(g.Bound().Center())
}

// parseRadius accepts a finite, non-negative radius in meters. NaN and Inf,
// which ParseFloat reads without error, are rejected.
func parseRadius(v string) (float64, error) {
	r, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0, fmt.Errorf("invalid radius %q", v)
	}
	return r, nil
}

func buildPoint(id string, loc geo.Point, attr func([]string) string, opts LoadOptions) (model.Point, error) {
	if !loc.Valid() {
		return model.Point{}, fmt.Errorf("location out of range: %+v", loc)
	}
	title := attr(titleKeys)
	if title == "" {
		return model.Point{}, errors.New("missing title")
	}
	if id == "" {
		// Stable across re-imports of the same file.
		key := fmt.Sprintf("%.6f,%.6f,%s", loc.Lat, loc.Lon, title)
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	}

	radius := opts.DefaultRadius
	if v := attr(radiusKeys); v != "" {
		r, err := parseRadius(v)
		if err != nil {
			return model.Point{}, err
		}
		radius = r
	}

	media := model.Media{URI: attr(mediaKeys), Kind: model.MediaKind(attr(mediaKindKeys))}
	if media.Kind == "" && media.URI != "" {
		media.Kind = guessMediaKind(media.URI)
	}

	return model.Point{
		ID:               id,
		Title:            title,
		Description:      attr(descriptionKeys),
		Category:         attr(categoryKeys),
		Location:         loc,
		ActivationRadius: radius,
		Media:            media,
		ThumbnailURL:     attr(thumbnailKeys),
	}, nil
}

func guessMediaKind(uri string) model.MediaKind {
	switch strings.ToLower(filepath.Ext(uri)) {
	case ".mp3", ".wav", ".ogg", ".m4a":
		return model.MediaAudio
	case ".mp4", ".webm", ".mov":
		return model.MediaVideo
	}
	return model.MediaText
}
