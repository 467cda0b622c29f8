package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inference worker metrics.

var (
	DetectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trinetra_detection_latency_seconds",
			Help:    "Person detector batch inference latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	EmbeddingLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trinetra_embedding_latency_seconds",
			Help:    "Face embedding batch inference latency",
			Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
		},
	)

	WorkerFramesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_worker_frames_processed_total",
			Help: "Frames fully processed by the inference worker",
		},
		[]string{"camera_id"},
	)

	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trinetra_detections_total",
			Help: "Person detections produced",
		},
		[]string{"camera_id"},
	)

	KafkaPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trinetra_kafka_publish_errors_total",
			Help: "Failed event bus publish attempts",
		},
	)

	GPUUtilization = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trinetra_gpu_utilization_pct",
			Help: "GPU utilization percent, polled via nvidia-smi",
		},
	)

	GPUVRAMUsedMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trinetra_gpu_vram_used_mb",
			Help: "GPU VRAM used in MB",
		},
	)
)
