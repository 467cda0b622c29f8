package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream ingestor metrics. camera_id is bounded by the deployment's camera
// file, so the label cardinality is fixed and known.

var (
	FramesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_ingestor_frames_total",
			Help: "Total frames pushed to the frame bus per camera",
		},
		[]string{"camera_id", "camera_type"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_ingestor_frames_dropped_total",
			Help: "Frames dropped by sampling or backpressure per camera",
		},
		[]string{"camera_id"},
	)

	StreamReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_ingestor_reconnects_total",
			Help: "RTSP stream reconnect attempts per camera",
		},
		[]string{"camera_id"},
	)

	RedisStreamLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trinetra_redis_stream_length",
			Help: "Current number of entries in the frame stream",
		},
		[]string{"camera_id"},
	)

	FrameIngestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trinetra_ingestor_frame_latency_seconds",
			Help:    "Time from queue hand-off to frame bus append",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	CorruptedFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_ingestor_corrupted_frames_total",
			Help: "Frames the decoder returned empty, counted and skipped",
		},
		[]string{"camera_id"},
	)
)
