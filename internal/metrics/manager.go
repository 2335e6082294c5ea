// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager bundles the collectors so that they can be registered on a custom registry.
type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterImportedWorkouts   prometheus.Counter
	CounterDuplicateWorkouts  prometheus.Counter
	CounterImportedVitals     prometheus.Counter
	CounterPrunedVitals       prometheus.Counter

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistRequestDuration *prometheus.HistogramVec
}

// NewTestManager creates a manager on a throwaway registry.
func NewTestManager() *Manager {
	return NewManager("repcoach", "test", prometheus.NewRegistry())
}

// NewManager creates the collectors and registers them on reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of handled requests",
		}, []string{"method", "pattern", "status"}),
		CounterHandleRequestPanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panics_total",
			Help:      "The total number of recovered request panics",
		}),
		CounterImportedWorkouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "external_workouts_imported_total",
			Help:      "The total number of imported external workouts",
		}),
		CounterDuplicateWorkouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "external_workouts_duplicates_total",
			Help:      "The total number of external workouts marked as duplicates",
		}),
		CounterImportedVitals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "vitals_imported_total",
			Help:      "The total number of imported vital samples",
		}),
		CounterPrunedVitals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "vitals_pruned_total",
			Help:      "The total number of vital samples removed by retention",
		}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of handled requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "pattern"}),
	}
}
