package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"geoguide/pkg/catalog"
	"geoguide/pkg/db"
	"geoguide/pkg/store"
)

const catalogFileStateKey = "catalog_file_mtime"

// Run executes startup maintenance: the catalog import and a statistics refresh.
// It blocks until completion. Failures are logged, never fatal.
func Run(ctx context.Context, s store.Store, d *db.DB, catalogFile string, opts catalog.LoadOptions) error {
	slog.Info("Starting database maintenance...")

	if catalogFile != "" {
		if n, err := ImportCatalog(ctx, s, catalogFile, opts); err != nil {
			slog.Error("Catalog import failed", "path", catalogFile, "error", err)
		} else if n >= 0 {
			slog.Info("Catalog import completed", "points", n)
		}
	}

	if _, err := d.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		slog.Error("Database optimize failed", "error", err)
	}
	return nil
}

// ImportCatalog replaces the stored points with the contents of path when the
// file changed since the last import. It returns -1 when the store is current
// or the file does not exist.
func ImportCatalog(ctx context.Context, s store.Store, path string, opts catalog.LoadOptions) (int, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat catalog file: %w", err)
	}

	fileMTime := info.ModTime().UTC().Format(time.RFC3339Nano)
	stored, found := s.GetState(ctx, catalogFileStateKey)
	if found && stored == fileMTime {
		return -1, nil
	}

	slog.Info("Importing catalog file...", "path", path)
	points, err := catalog.LoadFile(path, opts)
	if err != nil {
		return 0, err
	}
	if err := s.ReplacePoints(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to store points: %w", err)
	}
	if err := s.SetState(ctx, catalogFileStateKey, fileMTime); err != nil {
		return 0, fmt.Errorf("failed to update state: %w", err)
	}
	return len(points), nil
}
