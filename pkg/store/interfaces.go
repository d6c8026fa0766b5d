package store

import (
	"context"

	"geoguide/pkg/model"
)

// PointStore handles point-of-interest persistence.
type PointStore interface {
	GetPoint(ctx context.Context, id string) (*model.Point, error)
	SavePoint(ctx context.Context, p *model.Point) error
	// ReplacePoints atomically swaps the whole catalog for points.
	ReplacePoints(ctx context.Context, points []model.Point) error
	PointsInBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]model.Point, error)
	CountPoints(ctx context.Context) (int, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
