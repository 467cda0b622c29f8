// Package events defines the wire payloads crossing the event bus.
// All payloads are JSON, UTF-8; compression happens at the transport.
package events

// Topic names on the event bus.
const (
	TopicDetections = "trinetra.detections"
	TopicIdentities = "trinetra.identities"
	TopicAlerts     = "trinetra.alerts"
)

// EmbeddingDim is the ArcFace output dimension.
const EmbeddingDim = 512

// Detection is one person box in a frame. BBox is [x1,y1,x2,y2] normalized
// to [0,1]. ClassID is always 0 (person); other classes are filtered out
// before publication. TrackID is reserved; no tracker assigns it yet.
type Detection struct {
	TrackID    int       `json:"track_id"`
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
	ClassID    int       `json:"class_id"`
}

// InferenceEvent is published per processed frame, even when no person was
// found (empty arrays). Detections and Embeddings are aligned 1:1.
type InferenceEvent struct {
	CameraID   string      `json:"camera_id"`
	CameraType string      `json:"camera_type"`
	IngestTS   float64     `json:"ingest_ts"`
	WorkerTS   float64     `json:"worker_ts"`
	Detections []Detection `json:"detections"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Match methods reported on ResolvedIdentity.
const (
	MatchMethodANN     = "ann"
	MatchMethodUnknown = "unknown"
)

// ResolvedIdentity is the resolver's verdict for one detection.
// A nil CustomerID means UNKNOWN and is serialized as JSON null.
type ResolvedIdentity struct {
	EventID     string    `json:"event_id"`
	CameraID    string    `json:"camera_id"`
	CameraType  string    `json:"camera_type"`
	TrackID     int       `json:"track_id"`
	CustomerID  *string   `json:"customer_id"`
	Confidence  float64   `json:"confidence"`
	MatchMethod string    `json:"match_method"`
	IngestTS    float64   `json:"ingest_ts"`
	ResolveTS   float64   `json:"resolve_ts"`
	BBox        []float64 `json:"bbox"`
	Embedding   []float32 `json:"embedding"`
}

// Alert types and severities.
const (
	AlertUnknownAtBilling = "UNKNOWN_AT_BILLING"
	AlertVIPDetected      = "VIP_DETECTED"

	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Alert is an operator-facing notification emitted alongside identities.
type Alert struct {
	AlertID    string            `json:"alert_id"`
	AlertType  string            `json:"alert_type"`
	CameraID   string            `json:"camera_id"`
	CustomerID *string           `json:"customer_id"`
	Severity   string            `json:"severity"`
	TS         float64           `json:"ts"`
	Metadata   map[string]string `json:"metadata"`
}
