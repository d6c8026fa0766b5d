package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoguide/pkg/catalog"
)

func TestRun_ImportAndExport(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.geojson")
	require.NoError(t, os.WriteFile(input, []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[11.5755,48.1374]},
		 "properties":{"id":"marienplatz","title":"Marienplatz","audio":"m.mp3","category":"square"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[11.5800,48.1400]},
		 "properties":{"id":"dom","title":"Frauenkirche","radius":70}}]}`), 0o644))

	dbPath := filepath.Join(dir, "data", "catalog.db")
	output := filepath.Join(dir, "out.geojson")
	require.NoError(t, run(context.Background(), input, dbPath, output, 35))

	// The export reads back to the same points.
	points, err := catalog.LoadFile(output, catalog.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, points, 2)

	byID := map[string]float64{}
	for _, p := range points {
		byID[p.ID] = p.ActivationRadius
	}
	assert.Equal(t, map[string]float64{"marienplatz": 35, "dom": 70}, byID)
}

func TestRun_BadInput(t *testing.T) {
	dir := t.TempDir()
	err := run(context.Background(), filepath.Join(dir, "in.kml"), filepath.Join(dir, "c.db"), "", 10)
	assert.ErrorIs(t, err, catalog.ErrUnsupportedFormat)
}
