package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0},
			want: 0,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lon: -0.1278},
			p2:   Point{Lat: 48.8566, Lon: 2.3522},
			want: 344000, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111195,
		},
		{
			name: "Equator 0.0005 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0.0005},
			want: 55.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			if tt.want == 0 {
				if got != 0 {
					t.Errorf("Distance() = %v, want 0", got)
				}
				return
			}
			margin := tt.want * 0.01
			if math.Abs(got-tt.want) > margin {
				t.Errorf("Distance() = %v, want %v (+/- %v)", got, tt.want, margin)
			}
		})
	}
}

func TestDestinationPoint_RoundTrip(t *testing.T) {
	start := Point{Lat: 48.137, Lon: 11.575}
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		dest := DestinationPoint(start, 250, bearing)
		if d := Distance(start, dest); math.Abs(d-250) > 0.01 {
			t.Errorf("bearing %v: distance = %v, want 250", bearing, d)
		}
		if bearing == 0 || bearing == 90 || bearing == 180 {
			if b := Bearing(start, dest); math.Abs(b-bearing) > 0.1 {
				t.Errorf("bearing %v: Bearing() = %v", bearing, b)
			}
		}
	}
}

func TestBoundAround_ContainsCircle(t *testing.T) {
	center := Point{Lat: 52.52, Lon: 13.405}
	radius := 1500.0
	b := BoundAround(center, radius)

	for _, bearing := range []float64{0, 90, 180, 270, 45, 135} {
		p := DestinationPoint(center, radius, bearing)
		if !b.Contains(p.Orb()) {
			t.Errorf("bound does not contain point at bearing %v: %+v", bearing, p)
		}
	}
	far := DestinationPoint(center, radius*2, 0)
	if b.Contains(far.Orb()) {
		t.Errorf("bound should not contain point at twice the radius")
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{90, 180}, true},
		{Point{-91, 0}, false},
		{Point{0, 181}, false},
		{Point{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestDestinationPoint_WrapsAntimeridian(t *testing.T) {
	p := DestinationPoint(Point{Lat: 0, Lon: 179.999}, 500, 90)
	if p.Lon >= 0 || p.Lon < -180 {
		t.Errorf("expected wrapped negative longitude, got %v", p.Lon)
	}
	if d := Distance(Point{Lat: 0, Lon: 179.999}, p); math.Abs(d-500) > 0.01 {
		t.Errorf("distance across antimeridian = %v, want 500", d)
	}
}
