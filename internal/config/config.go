package config

import (
	"os"
	"strconv"
	"time"
)

// Env helpers shared by all three service mains.

func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func GetenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// IngestorConfig configures cmd/ingestor.
type IngestorConfig struct {
	RedisURL       string
	CameraConfigs  string
	FrameBufferMax int
	TargetFPS      int
	MetricsPort    int
}

func IngestorFromEnv() IngestorConfig {
	return IngestorConfig{
		RedisURL:       Getenv("REDIS_URL", "redis://localhost:6379"),
		CameraConfigs:  Getenv("CAMERA_CONFIGS", "/etc/trinetra/cameras.yaml"),
		FrameBufferMax: GetenvInt("FRAME_BUFFER_MAXLEN", 100),
		TargetFPS:      GetenvInt("TARGET_FPS", 15),
		MetricsPort:    GetenvInt("METRICS_PORT", 8001),
	}
}

// WorkerConfig configures cmd/worker.
type WorkerConfig struct {
	RedisURL         string
	KafkaBrokers     string
	FrameBufferMax   int
	BatchSize        int
	BatchTimeout     time.Duration
	YOLOModelPath    string
	ArcFaceModelPath string
	OnnxRuntimeLib   string
	MetricsPort      int
}

func WorkerFromEnv() WorkerConfig {
	return WorkerConfig{
		RedisURL:         Getenv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:     Getenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		FrameBufferMax:   GetenvInt("FRAME_BUFFER_MAXLEN", 100),
		BatchSize:        GetenvInt("BATCH_SIZE", 4),
		BatchTimeout:     time.Duration(GetenvInt("BATCH_TIMEOUT_MS", 20)) * time.Millisecond,
		YOLOModelPath:    Getenv("YOLO_MODEL_PATH", "/models/yolov8m.onnx"),
		ArcFaceModelPath: Getenv("ARCFACE_MODEL_PATH", "/models/arcface_r50.onnx"),
		OnnxRuntimeLib:   Getenv("ONNXRUNTIME_LIB", "/usr/lib/libonnxruntime.so"),
		MetricsPort:      GetenvInt("METRICS_PORT", 8002),
	}
}

// ResolverConfig configures cmd/resolver.
type ResolverConfig struct {
	KafkaBrokers     string
	ConsumerGroup    string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	CosineThreshold  float64
	GateWindow       time.Duration
	RegistryTTL      time.Duration
	TravelMatrix     string
	DedupMaxKeys     int
	DedupTTL         time.Duration
	MetricsPort      int
}

func ResolverFromEnv() ResolverConfig {
	return ResolverConfig{
		KafkaBrokers:     Getenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		ConsumerGroup:    Getenv("KAFKA_CONSUMER_GROUP", "identity-resolver-group"),
		QdrantURL:        Getenv("QDRANT_URL", "http://localhost:6334"),
		QdrantAPIKey:     Getenv("QDRANT_API_KEY", ""),
		QdrantCollection: Getenv("QDRANT_COLLECTION", "face_embeddings"),
		CosineThreshold:  GetenvFloat("COSINE_THRESHOLD", 0.72),
		GateWindow:       time.Duration(GetenvFloat("TEMPORAL_GATE_WINDOW_S", 3600)) * time.Second,
		RegistryTTL:      time.Duration(GetenvFloat("REGISTRY_TTL_S", 3600)) * time.Second,
		TravelMatrix:     Getenv("TRAVEL_MATRIX", "/etc/trinetra/travel.yaml"),
		DedupMaxKeys:     GetenvInt("DEDUP_MAX_KEYS", 8192),
		DedupTTL:         time.Duration(GetenvInt("DEDUP_TTL_S", 30)) * time.Second,
		MetricsPort:      GetenvInt("METRICS_PORT", 8003),
	}
}
