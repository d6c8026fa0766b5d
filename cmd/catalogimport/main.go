// Command catalogimport loads a GeoJSON or shapefile point layer into the
// sqlite catalog, optionally writing the stored catalog back out as GeoJSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"

	"geoguide/pkg/catalog"
	"geoguide/pkg/db"
	"geoguide/pkg/model"
	"geoguide/pkg/store"
)

func main() {
	inputPath := flag.String("input", "", "Path to input .geojson or .shp file")
	dbPath := flag.String("db", "./data/geoguide.db", "Path to the sqlite database")
	exportPath := flag.String("export", "", "Optional path to write the stored catalog as .geojson")
	radius := flag.Float64("radius", 50, "Default activation radius in meters")
	flag.Parse()

	if *inputPath == "" && *exportPath == "" {
		flag.Usage()
		log.Fatal("An input or export path is required")
	}

	if err := run(context.Background(), *inputPath, *dbPath, *exportPath, *radius); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, inputPath, dbPath, exportPath string, radius float64) error {
	d, err := db.Init(dbPath)
	if err != nil {
		return err
	}
	defer d.Close()
	st := store.NewSQLiteStore(d)

	if inputPath != "" {
		points, err := catalog.LoadFile(inputPath, catalog.LoadOptions{DefaultRadius: radius})
		if err != nil {
			return err
		}
		if err := st.ReplacePoints(ctx, points); err != nil {
			return fmt.Errorf("failed to store points: %w", err)
		}
		fmt.Printf("Imported %d points from %s\n", len(points), inputPath)
	}

	if exportPath != "" {
		points, err := st.PointsInBounds(ctx, -90, 90, -180, 180)
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
		if err := writeGeoJSON(exportPath, points); err != nil {
			return err
		}
		fmt.Printf("Exported %d points to %s\n", len(points), exportPath)
	}
	return nil
}

// writeGeoJSON writes points with the property names the loader reads back.
func writeGeoJSON(path string, points []model.Point) error {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewFeature(p.Location.Orb())
		f.ID = p.ID
		f.Properties["id"] = p.ID
		f.Properties["title"] = p.Title
		f.Properties["radius"] = p.ActivationRadius
		for key, val := range map[string]string{
			"description": p.Description,
			"category":    p.Category,
			"media":       p.Media.URI,
			"media_kind":  string(p.Media.Kind),
			"thumbnail":   p.ThumbnailURL,
		} {
			if val != "" {
				f.Properties[key] = val
			}
		}
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
