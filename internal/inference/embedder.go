package inference

import (
	"fmt"
	"image"
	"log"
	"math"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const (
	embedderInput = 112

	// maxSubBatch caps a single embedding session run. Crop counts vary
	// wildly per micro-batch, so large batches are split to keep VRAM
	// usage bounded.
	maxSubBatch = 16
)

// FaceEmbedder runs an ArcFace ONNX model over person crops, producing
// L2-normalized 512-dim embeddings.
type FaceEmbedder struct {
	session *ort.DynamicAdvancedSession
}

func NewFaceEmbedder(modelPath string) (*FaceEmbedder, error) {
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"data"}, []string{"fc1"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load embedder model %s: %w", modelPath, err)
	}
	log.Printf("[Worker] Embedder model loaded from %s", modelPath)
	return &FaceEmbedder{session: session}, nil
}

// EmbedBatch returns one embedding per crop, in input order. Crops run in
// sub-batches of at most 16; a failed sub-batch yields zero vectors for
// its crops only, so one bad run never poisons the rest of the batch.
// A nil crop (degenerate bbox) also yields a zero vector.
func (e *FaceEmbedder) EmbedBatch(crops []image.Image) [][]float32 {
	out := make([][]float32, len(crops))
	for i := range out {
		out[i] = make([]float32, events.EmbeddingDim)
	}
	if len(crops) == 0 {
		return out
	}

	start := time.Now()
	for lo := 0; lo < len(crops); lo += maxSubBatch {
		hi := lo + maxSubBatch
		if hi > len(crops) {
			hi = len(crops)
		}
		e.embedSubBatch(crops[lo:hi], out[lo:hi])
	}
	metrics.EmbeddingLatency.Observe(time.Since(start).Seconds())
	return out
}

func (e *FaceEmbedder) embedSubBatch(crops []image.Image, out [][]float32) {
	// Degenerate crops keep their zero vector and are excluded from the
	// tensor so the model only sees real pixels.
	var live []int
	for i, crop := range crops {
		if crop != nil {
			live = append(live, i)
		}
	}
	if len(live) == 0 {
		return
	}

	n := len(live)
	plane := 3 * embedderInput * embedderInput
	data := make([]float32, n*plane)
	for slot, i := range live {
		rgba := toRGBA(crops[i], embedderInput, embedderInput)
		fillCHW(data[slot*plane:(slot+1)*plane], rgba, embedderInput, embedderInput, 127.5, 1.0/127.5)
	}

	vectors, err := e.run(n, data)
	if err != nil {
		log.Printf("[Worker] Embedding sub-batch failed, emitting zero vectors: %v", err)
		return
	}

	for slot, i := range live {
		vec := vectors[slot*events.EmbeddingDim : (slot+1)*events.EmbeddingDim]
		copy(out[i], l2Normalize(vec))
	}
}

func (e *FaceEmbedder) run(n int, data []float32) ([]float32, error) {
	input, err := ort.NewTensor(ort.NewShape(int64(n), 3, embedderInput, embedderInput), data)
	if err != nil {
		return nil, fmt.Errorf("embedder input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), events.EmbeddingDim))
	if err != nil {
		return nil, fmt.Errorf("embedder output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("embedder session run: %w", err)
	}

	vectors := make([]float32, len(output.GetData()))
	copy(vectors, output.GetData())
	return vectors, nil
}

// l2Normalize scales the vector to unit length so gallery comparisons
// reduce to cosine similarity. Zero vectors pass through unchanged.
func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func (e *FaceEmbedder) Close() {
	e.session.Destroy()
}
