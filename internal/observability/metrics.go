// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	StreamReconnects prometheus.Counter
	StreamState      prometheus.Gauge
	FramesDecoded    prometheus.Counter
	MalformedFrames  prometheus.Counter

	// Ingestion metrics
	EventsIngested    prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	TokensCreated     prometheus.Counter
	IngestErrors      *prometheus.CounterVec

	// Refresh metrics
	RefreshOutcomes *prometheus.CounterVec

	// Gateway metrics
	QueryLatency *prometheus.HistogramVec
	QueryErrors  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_tracker"
	}

	return &Metrics{
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of stream reconnect attempts",
		}),
		StreamState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "state",
			Help:      "Current stream consumer state (0=disconnected, 1=connecting, 2=awaiting_ack, 3=subscribed)",
		}),
		FramesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "frames_decoded_total",
			Help:      "Total number of data frames decoded",
		}),
		MalformedFrames: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "malformed_frames_total",
			Help:      "Total number of malformed frames skipped",
		}),

		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of transfer events stored",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of duplicate transfer events skipped",
		}),
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tokens_created_total",
			Help:      "Total number of token records created from creation events",
		}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by stage",
		}, []string{"stage"}),

		RefreshOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "outcomes_total",
			Help:      "Total number of refresh outcomes by result",
		}, []string{"result"}),

		QueryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "query_latency_seconds",
			Help:      "Upstream query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		QueryErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "query_errors_total",
			Help:      "Total number of upstream query failures",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
