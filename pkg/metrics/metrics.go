// Package metrics exposes Prometheus collectors for the location and proximity pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// FixesTotal counts fixes accepted by the location source.
	FixesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "fixes_total",
			Help:      "Total number of position fixes delivered by the watch",
		},
	)

	// FixesFiltered counts fixes dropped by the minimum displacement filter.
	FixesFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "fixes_filtered_total",
			Help:      "Total number of fixes suppressed by the displacement filter",
		},
		[]string{"sensor"},
	)

	// WatchErrors counts failure callbacks from the watch.
	WatchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "watch_errors_total",
			Help:      "Total number of position watch failures",
		},
		[]string{"kind"},
	)

	// LocationEnabled is 1 while the latest watch callback succeeded.
	LocationEnabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "geoguide",
			Name:      "location_enabled",
			Help:      "Whether the position source currently reports enabled",
		},
	)

	// Activations counts points that became active.
	Activations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "activations_total",
			Help:      "Total number of points activated for presentation",
		},
		[]string{"trigger"},
	)

	// Dismissals counts points added to the presented set.
	Dismissals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "dismissals_total",
			Help:      "Total number of dismissed presentations",
		},
	)

	// CatalogQueries counts catalog page requests by backend and outcome.
	CatalogQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geoguide",
			Name:      "catalog_queries_total",
			Help:      "Total number of catalog queries",
		},
		[]string{"backend", "result"},
	)

	once sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		for _, c := range []prometheus.Collector{
			FixesTotal, FixesFiltered, WatchErrors, LocationEnabled,
			Activations, Dismissals, CatalogQueries,
		} {
			// AlreadyRegistered only happens in tests that share the default registry.
			_ = prometheus.DefaultRegisterer.Register(c)
		}
	})
}
