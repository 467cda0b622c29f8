package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinetra-retail/trinetra/internal/events"
)

func det(x1, y1, x2, y2, conf float64) events.Detection {
	return events.Detection{BBox: []float64{x1, y1, x2, y2}, Confidence: conf}
}

func TestIOU(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{0, 0, 1, 1}, []float64{0, 0, 1, 1}, 1.0},
		{"disjoint", []float64{0, 0, 0.4, 0.4}, []float64{0.5, 0.5, 1, 1}, 0.0},
		{"half overlap", []float64{0, 0, 0.5, 1}, []float64{0.25, 0, 0.75, 1}, 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, iou(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNonMaxSuppression_KeepsBestOfCluster(t *testing.T) {
	dets := []events.Detection{
		det(0.10, 0.10, 0.30, 0.50, 0.80),
		det(0.11, 0.11, 0.31, 0.51, 0.90), // best of the cluster
		det(0.12, 0.09, 0.30, 0.49, 0.60),
		det(0.70, 0.60, 0.90, 0.95, 0.75), // separate person
	}

	kept := nonMaxSuppression(dets, iouThreshold)
	require.Len(t, kept, 2)
	assert.Equal(t, 0.90, kept[0].Confidence)
	assert.Equal(t, 0.75, kept[1].Confidence)
}

func TestNonMaxSuppression_NoOverlapKeepsAll(t *testing.T) {
	dets := []events.Detection{
		det(0.0, 0.0, 0.2, 0.4, 0.5),
		det(0.4, 0.0, 0.6, 0.4, 0.9),
		det(0.8, 0.5, 1.0, 0.9, 0.7),
	}

	kept := nonMaxSuppression(dets, iouThreshold)
	require.Len(t, kept, 3)
	// Sorted best-first.
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, 0.7, kept[1].Confidence)
	assert.Equal(t, 0.5, kept[2].Confidence)
}

func TestDecodePredictions_FiltersAndNormalizes(t *testing.T) {
	raw := make([]float32, yoloAttributes*yoloAnchors)

	// Anchor 0: confident person centered at (320,320), 160x320 box.
	raw[0*yoloAnchors] = 320
	raw[1*yoloAnchors] = 320
	raw[2*yoloAnchors] = 160
	raw[3*yoloAnchors] = 320
	raw[(4+personClassID)*yoloAnchors] = 0.9

	// Anchor 1: below the confidence threshold.
	raw[0*yoloAnchors+1] = 100
	raw[1*yoloAnchors+1] = 100
	raw[2*yoloAnchors+1] = 50
	raw[3*yoloAnchors+1] = 50
	raw[(4+personClassID)*yoloAnchors+1] = confThreshold - 0.01

	dets := decodePredictions(raw)
	require.Len(t, dets, 1)
	assert.Equal(t, personClassID, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.InDelta(t, 0.375, dets[0].BBox[0], 1e-6)
	assert.InDelta(t, 0.25, dets[0].BBox[1], 1e-6)
	assert.InDelta(t, 0.625, dets[0].BBox[2], 1e-6)
	assert.InDelta(t, 0.75, dets[0].BBox[3], 1e-6)
}

func TestDecodePredictions_ClampsToFrame(t *testing.T) {
	raw := make([]float32, yoloAttributes*yoloAnchors)

	// Box hanging off the left edge.
	raw[0*yoloAnchors] = 10
	raw[1*yoloAnchors] = 320
	raw[2*yoloAnchors] = 100
	raw[3*yoloAnchors] = 200
	raw[(4+personClassID)*yoloAnchors] = 0.8

	dets := decodePredictions(raw)
	require.Len(t, dets, 1)
	assert.Equal(t, 0.0, dets[0].BBox[0])
}

func TestDecodePredictions_Empty(t *testing.T) {
	dets := decodePredictions(make([]float32, yoloAttributes*yoloAnchors))
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	out := l2Normalize(v)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	// Zero vectors stay zero rather than dividing by zero.
	zero := make([]float32, 4)
	out = l2Normalize(zero)
	for _, x := range out {
		assert.Zero(t, x)
	}
}

func TestCropRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 50; y < 100; y++ {
		for x := 50; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	crop := CropRegion(img, []float64{0.5, 0.5, 1.0, 1.0})
	require.NotNil(t, crop)
	assert.Equal(t, 50, crop.Bounds().Dx())
	assert.Equal(t, 50, crop.Bounds().Dy())
	r, _, _, _ := crop.At(10, 10).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestCropRegion_Degenerate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))

	assert.Nil(t, CropRegion(img, []float64{0.5, 0.5, 0.5, 0.9}))
	assert.Nil(t, CropRegion(img, []float64{0.9, 0.2, 0.1, 0.8}))
	assert.Nil(t, CropRegion(img, []float64{0.1, 0.2}))
}

func TestFillCHW_ScalesPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 127, A: 255})

	dst := make([]float32, 3*2*2)
	fillCHW(dst, img, 2, 2, 127.5, 1.0/127.5)

	assert.InDelta(t, 1.0, dst[0], 1e-6)   // R plane
	assert.InDelta(t, -1.0, dst[4], 1e-6)  // G plane
	assert.InDelta(t, -0.00392, dst[8], 1e-3) // B plane
}
