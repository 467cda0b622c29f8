package inference

import (
	"fmt"
	"image"
	"log"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const (
	detectorInput  = 640
	personClassID  = 0
	confThreshold  = 0.35
	iouThreshold   = 0.45
	yoloAttributes = 84   // 4 box coords + 80 class scores
	yoloAnchors    = 8400 // candidate boxes per image at 640x640
)

// PersonDetector runs a YOLOv8 ONNX model over frame batches and keeps
// only person-class boxes. The session accepts a dynamic batch dimension,
// so partial micro-batches run as-is.
type PersonDetector struct {
	session *ort.DynamicAdvancedSession
}

func NewPersonDetector(modelPath string) (*PersonDetector, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load detector model %s: %w", modelPath, err)
	}
	log.Printf("[Worker] Detector model loaded from %s", modelPath)
	return &PersonDetector{session: session}, nil
}

// DetectBatch returns one detection list per input frame, in input order.
// Inference failure fails open: every frame in the batch gets an empty
// list and the pipeline keeps moving.
func (d *PersonDetector) DetectBatch(frames []image.Image) [][]events.Detection {
	out := make([][]events.Detection, len(frames))
	if len(frames) == 0 {
		return out
	}

	start := time.Now()
	raw, err := d.run(frames)
	if err != nil {
		log.Printf("[Worker] Detection inference failed, dropping batch detections: %v", err)
		for i := range out {
			out[i] = []events.Detection{}
		}
		return out
	}
	metrics.DetectionLatency.Observe(time.Since(start).Seconds())

	stride := yoloAttributes * yoloAnchors
	for i := range frames {
		out[i] = decodePredictions(raw[i*stride : (i+1)*stride])
	}
	return out
}

func (d *PersonDetector) run(frames []image.Image) ([]float32, error) {
	n := len(frames)
	plane := 3 * detectorInput * detectorInput
	data := make([]float32, n*plane)
	for i, img := range frames {
		rgba := toRGBA(img, detectorInput, detectorInput)
		fillCHW(data[i*plane:(i+1)*plane], rgba, detectorInput, detectorInput, 0, 1.0/255.0)
	}

	input, err := ort.NewTensor(ort.NewShape(int64(n), 3, detectorInput, detectorInput), data)
	if err != nil {
		return nil, fmt.Errorf("detector input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), yoloAttributes, yoloAnchors))
	if err != nil {
		return nil, fmt.Errorf("detector output tensor: %w", err)
	}
	defer output.Destroy()

	if err := d.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("detector session run: %w", err)
	}

	raw := make([]float32, len(output.GetData()))
	copy(raw, output.GetData())
	return raw, nil
}

// decodePredictions converts one frame's (84,8400) prediction block into
// person detections: confidence filter, center-box to corner-box,
// normalize to [0,1], then NMS.
func decodePredictions(raw []float32) []events.Detection {
	var candidates []events.Detection
	for a := 0; a < yoloAnchors; a++ {
		score := raw[(4+personClassID)*yoloAnchors+a]
		if score < confThreshold {
			continue
		}

		cx := float64(raw[0*yoloAnchors+a])
		cy := float64(raw[1*yoloAnchors+a])
		w := float64(raw[2*yoloAnchors+a])
		h := float64(raw[3*yoloAnchors+a])

		candidates = append(candidates, events.Detection{
			BBox: []float64{
				clamp01((cx - w/2) / detectorInput),
				clamp01((cy - h/2) / detectorInput),
				clamp01((cx + w/2) / detectorInput),
				clamp01((cy + h/2) / detectorInput),
			},
			Confidence: float64(score),
			ClassID:    personClassID,
		})
	}
	if candidates == nil {
		return []events.Detection{}
	}
	return nonMaxSuppression(candidates, iouThreshold)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (d *PersonDetector) Close() {
	d.session.Destroy()
}
