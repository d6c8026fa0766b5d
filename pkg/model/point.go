package model

import (
	"time"

	"geoguide/pkg/geo"
)

// MediaKind identifies how a point's media is presented.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaText  MediaKind = "text"
)

// Media references the content played when a point is reached.
type Media struct {
	Kind MediaKind `json:"kind"`
	URI  string    `json:"uri"` // local path or remote URL
}

// Point is a point of interest supplied by the catalog.
type Point struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Category         string    `json:"category,omitempty"`
	Location         geo.Point `json:"location"`
	ActivationRadius float64   `json:"activation_radius"` // meters
	Media            Media     `json:"media"`
	ThumbnailURL     string    `json:"thumbnail_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// DisplayName returns the best available name for the point.
func (p *Point) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}
