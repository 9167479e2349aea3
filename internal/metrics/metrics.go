package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for image lifecycle work.
type Metrics struct {
	ImageUploads     *prometheus.CounterVec
	ImageDeletions   *prometheus.CounterVec
	ReaperSweeps     prometheus.Counter
	ReaperReaped     prometheus.Counter
	ReaperFailures   prometheus.Counter
	ReaperSkipped    prometheus.Counter
	ReaperDuration   prometheus.Histogram
	ReviewListLength prometheus.Histogram
	StorageBreaker   prometheus.Gauge
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ImageUploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "travel_review",
				Subsystem: "images",
				Name:      "uploads_total",
				Help:      "Image uploads by source type and outcome",
			},
			[]string{"source", "outcome"},
		),
		ImageDeletions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "travel_review",
				Subsystem: "images",
				Name:      "deletions_total",
				Help:      "Explicit image deletions by outcome",
			},
			[]string{"outcome"},
		),
		ReaperSweeps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_review",
			Subsystem: "reaper",
			Name:      "sweeps_total",
			Help:      "Completed temporary image sweeps",
		}),
		ReaperReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_review",
			Subsystem: "reaper",
			Name:      "reaped_total",
			Help:      "Temporary images removed from storage and database",
		}),
		ReaperFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_review",
			Subsystem: "reaper",
			Name:      "failures_total",
			Help:      "Temporary images that could not be reaped and will be retried",
		}),
		ReaperSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "travel_review",
			Subsystem: "reaper",
			Name:      "skipped_total",
			Help:      "Candidates associated with a review before they could be reaped",
		}),
		ReaperDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "travel_review",
			Subsystem: "reaper",
			Name:      "sweep_duration_seconds",
			Help:      "Sweep duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ReviewListLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "travel_review",
			Subsystem: "reviews",
			Name:      "list_page_length",
			Help:      "Number of reviews returned per listing request",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		StorageBreaker: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "travel_review",
			Subsystem: "storage",
			Name:      "circuit_breaker_state",
			Help:      "Object storage circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
	}
}
