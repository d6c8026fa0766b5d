package main

import (
	"fmt"
	"log/slog"
	"time"

	"geoguide/pkg/config"
	"geoguide/pkg/geo"
	"geoguide/pkg/location"
	"geoguide/pkg/location/mocksensor"
	"geoguide/pkg/location/pushsensor"
)

// sensorSet is the configured position provider. Push is nil unless the
// device feeds fixes through the API.
type sensorSet struct {
	Permission location.PermissionProvider
	Watcher    location.Watcher
	Push       *pushsensor.Sensor
	close      func()
}

func (s sensorSet) Close() {
	if s.close != nil {
		s.close()
	}
}

func initSensors(cfg *config.Config) (sensorSet, error) {
	switch cfg.Location.Provider {
	case "mock":
		slog.Info("Location Source: Mock")
		m := mocksensor.New(mockConfig(cfg.Location.Mock))
		return sensorSet{Permission: m, Watcher: m, close: func() { _ = m.Close() }}, nil
	case "push":
		slog.Info("Location Source: Device push")
		p := pushsensor.New()
		return sensorSet{Permission: p, Watcher: p, Push: p}, nil
	}
	return sensorSet{}, fmt.Errorf("unknown location provider %q", cfg.Location.Provider)
}

func mockConfig(c config.MockGPSConfig) mocksensor.Config {
	route := make([]geo.Point, 0, len(c.Route))
	for _, wp := range c.Route {
		route = append(route, geo.Point{Lat: wp[0], Lon: wp[1]})
	}
	return mocksensor.Config{
		Start:          geo.Point{Lat: c.StartLat, Lon: c.StartLon},
		Route:          route,
		SpeedMPS:       c.SpeedMPS,
		Tick:           time.Duration(c.Tick),
		FailEvery:      c.FailEvery,
		JitterMeters:   c.JitterMeters,
		Loop:           c.LoopRoute,
		DenyPermission: c.DenyPermission,
	}
}
