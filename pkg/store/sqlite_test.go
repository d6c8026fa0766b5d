package store

import (
	"context"
	"path/filepath"
	"testing"

	"geoguide/pkg/db"
	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	testPoint(t, ctx, store)
	testReplaceAndBounds(t, ctx, store)
	testState(t, ctx, store)
}

func testPoint(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Point", func(t *testing.T) {
		p := &model.Point{
			ID:               "fountain",
			Title:            "Old Fountain",
			Description:      "Built 1612",
			Category:         "monument",
			Location:         geo.Point{Lat: 48.137, Lon: 11.575},
			ActivationRadius: 35,
			Media:            model.Media{Kind: model.MediaAudio, URI: "fountain.mp3"},
		}

		if err := store.SavePoint(ctx, p); err != nil {
			t.Fatalf("SavePoint failed: %v", err)
		}

		loaded, err := store.GetPoint(ctx, "fountain")
		if err != nil {
			t.Fatalf("GetPoint failed: %v", err)
		}
		if loaded == nil {
			t.Fatal("GetPoint returned nil")
		}
		if loaded.Title != "Old Fountain" || loaded.Category != "monument" {
			t.Errorf("unexpected point: %+v", loaded)
		}
		if loaded.Location != p.Location {
			t.Errorf("location mismatch: got %+v", loaded.Location)
		}
		if loaded.ActivationRadius != 35 {
			t.Errorf("expected radius 35, got %v", loaded.ActivationRadius)
		}
		if loaded.Media.Kind != model.MediaAudio || loaded.Media.URI != "fountain.mp3" {
			t.Errorf("media mismatch: %+v", loaded.Media)
		}
		if loaded.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}

		missing, err := store.GetPoint(ctx, "nope")
		if err != nil || missing != nil {
			t.Errorf("expected nil, nil for missing point, got %v, %v", missing, err)
		}
	})
}

func testReplaceAndBounds(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("ReplaceAndBounds", func(t *testing.T) {
		points := []model.Point{
			{ID: "b", Title: "B", Location: geo.Point{Lat: 10.5, Lon: 20.5}, ActivationRadius: 50},
			{ID: "a", Title: "A", Location: geo.Point{Lat: 10.1, Lon: 20.1}, ActivationRadius: 50},
			{ID: "far", Title: "Far", Location: geo.Point{Lat: -30, Lon: 100}, ActivationRadius: 50},
		}
		if err := store.ReplacePoints(ctx, points); err != nil {
			t.Fatalf("ReplacePoints failed: %v", err)
		}

		n, err := store.CountPoints(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 3 {
			t.Errorf("expected 3 points after replace, got %d", n)
		}
		if p, _ := store.GetPoint(ctx, "fountain"); p != nil {
			t.Error("ReplacePoints kept a point from the previous catalog")
		}

		got, err := store.PointsInBounds(ctx, 10, 11, 20, 21)
		if err != nil {
			t.Fatalf("PointsInBounds failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 points in bounds, got %d", len(got))
		}
		if got[0].ID != "a" || got[1].ID != "b" {
			t.Errorf("expected id order [a b], got [%s %s]", got[0].ID, got[1].ID)
		}

		none, err := store.PointsInBounds(ctx, 0, 1, 0, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(none) != 0 {
			t.Errorf("expected no points, got %d", len(none))
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if err := store.SetState(ctx, "my_key", "my_val"); err != nil {
			t.Errorf("SetState failed: %v", err)
		}
		sVal, sHit := store.GetState(ctx, "my_key")
		if !sHit {
			t.Error("Expected state hit")
		}
		if sVal != "my_val" {
			t.Errorf("Expected 'my_val', got '%s'", sVal)
		}

		if err := store.DeleteState(ctx, "my_key"); err != nil {
			t.Errorf("DeleteState failed: %v", err)
		}
		if _, hit := store.GetState(ctx, "my_key"); hit {
			t.Error("Expected state miss after delete")
		}
	})
}
