package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Identity resolver metrics.

var (
	ReIDLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trinetra_reid_latency_seconds",
			Help:    "End-to-end identity resolution latency per event",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	QdrantQueryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trinetra_qdrant_query_latency_seconds",
			Help:    "ANN gallery search latency",
			Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
		},
	)

	ReIDMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_reid_matches_total",
			Help: "Successful identity matches",
		},
		[]string{"camera_id"},
	)

	ReIDUnknowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_reid_unknowns_total",
			Help: "Detections resolved to UNKNOWN",
		},
		[]string{"camera_id"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_spatiotemporal_gate_rejections_total",
			Help: "Candidate matches rejected by the spatiotemporal gate",
		},
		[]string{"reason"},
	)

	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_alerts_total",
			Help: "Alerts emitted by type",
		},
		[]string{"alert_type"},
	)

	ActiveIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trinetra_active_identities",
			Help: "Identities currently tracked in the active registry",
		},
	)

	DuplicateEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trinetra_resolver_duplicate_events_total",
			Help: "Redelivered detection events skipped by the dedup window",
		},
	)
)
