// Package frame defines the envelope carried on the frame bus between the
// stream ingestor and the inference worker.
package frame

import (
	"fmt"
	"strconv"
)

// Field names of a frame-bus entry. The entry is a semi-typed record: the
// producer writes exactly these fields, and ParseFields validates them at
// the consuming edge instead of treating the entry as an open map.
const (
	FieldCameraID   = "camera_id"
	FieldCameraType = "camera_type"
	FieldIngestTS   = "ingest_ts"
	FieldFrame      = "frame"
)

// Frame is one sampled camera frame. JPEG holds the encoded image at
// quality 85, already resized to 640x640 by the ingestor; consumers never
// need the original resolution.
type Frame struct {
	CameraID   string
	CameraType string
	IngestTS   float64 // seconds since epoch
	JPEG       []byte
}

// Fields renders the frame as bus entry fields. IngestTS is a
// decimal-string so the value survives the string-typed transport intact.
func (f *Frame) Fields() map[string]interface{} {
	return map[string]interface{}{
		FieldCameraID:   f.CameraID,
		FieldCameraType: f.CameraType,
		FieldIngestTS:   strconv.FormatFloat(f.IngestTS, 'f', -1, 64),
		FieldFrame:      f.JPEG,
	}
}

// ParseFields validates and decodes a bus entry into a Frame.
func ParseFields(fields map[string]interface{}) (*Frame, error) {
	camID, err := stringField(fields, FieldCameraID)
	if err != nil {
		return nil, err
	}
	camType, err := stringField(fields, FieldCameraType)
	if err != nil {
		return nil, err
	}
	tsRaw, err := stringField(fields, FieldIngestTS)
	if err != nil {
		return nil, err
	}
	ts, err := strconv.ParseFloat(tsRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("frame field %s: %w", FieldIngestTS, err)
	}
	jpegRaw, err := stringField(fields, FieldFrame)
	if err != nil {
		return nil, err
	}
	if len(jpegRaw) == 0 {
		return nil, fmt.Errorf("frame field %s: empty", FieldFrame)
	}

	return &Frame{
		CameraID:   camID,
		CameraType: camType,
		IngestTS:   ts,
		JPEG:       []byte(jpegRaw),
	}, nil
}

func stringField(fields map[string]interface{}, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("frame field %s: missing", key)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("frame field %s: unexpected type %T", key, v)
	}
}
