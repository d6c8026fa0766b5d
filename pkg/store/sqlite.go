package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"geoguide/pkg/db"
	"geoguide/pkg/geo"
	"geoguide/pkg/model"
)

// Store defines the repository interface.
// Consumers should depend on the sub-interfaces when possible.
type Store interface {
	PointStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Points ---

const pointColumns = `id, title, description, category, lat, lon, radius_m, media_kind, media_uri, thumbnail_url, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoint(row rowScanner) (*model.Point, error) {
	var p model.Point
	var description, category, mediaKind, mediaURI, thumbnail sql.NullString
	var lat, lon float64

	err := row.Scan(
		&p.ID, &p.Title, &description, &category,
		&lat, &lon, &p.ActivationRadius,
		&mediaKind, &mediaURI, &thumbnail, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Location = geo.Point{Lat: lat, Lon: lon}
	p.Description = description.String
	p.Category = category.String
	p.Media = model.Media{Kind: model.MediaKind(mediaKind.String), URI: mediaURI.String}
	p.ThumbnailURL = thumbnail.String
	return &p, nil
}

// GetPoint returns nil, nil when the point does not exist.
func (s *SQLiteStore) GetPoint(ctx context.Context, id string) (*model.Point, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pointColumns+` FROM points WHERE id = ?`, id)
	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func savePoint(ctx context.Context, ex execer, p *model.Point) error {
	query := `INSERT OR REPLACE INTO points (` + pointColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ex.ExecContext(ctx, query,
		p.ID, p.Title, p.Description, p.Category,
		p.Location.Lat, p.Location.Lon, p.ActivationRadius,
		string(p.Media.Kind), p.Media.URI, p.ThumbnailURL, createdAt,
	)
	return err
}

func (s *SQLiteStore) SavePoint(ctx context.Context, p *model.Point) error {
	return savePoint(ctx, s.db, p)
}

func (s *SQLiteStore) ReplacePoints(ctx context.Context, points []model.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM points"); err != nil {
		return fmt.Errorf("failed to clear points: %w", err)
	}
	for i := range points {
		if err := savePoint(ctx, tx, &points[i]); err != nil {
			return fmt.Errorf("failed to save point %q: %w", points[i].ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) PointsInBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]model.Point, error) {
	query := `SELECT ` + pointColumns + ` FROM points
	          WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
	          ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *p)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountPoints(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM points").Scan(&n)
	return n, err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
