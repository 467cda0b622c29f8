package ingest

import (
	"gocv.io/x/gocv"
)

// FarnebackMotion computes the mean dense optical-flow magnitude between
// consecutive frames of one camera. Farneback parameters follow the usual
// surveillance defaults; the output feeds the sampler's motion signal, so
// only the mean matters, not per-pixel accuracy.
type FarnebackMotion struct {
	prevGray gocv.Mat
	flow     gocv.Mat
	primed   bool
}

func NewFarnebackMotion() *FarnebackMotion {
	return &FarnebackMotion{
		prevGray: gocv.NewMat(),
		flow:     gocv.NewMat(),
	}
}

// Estimate converts the frame to grayscale and returns the mean flow
// magnitude against the previous frame. The first frame returns 0.
func (m *FarnebackMotion) Estimate(frame gocv.Mat) float64 {
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	if !m.primed {
		m.prevGray.Close()
		m.prevGray = gray
		m.primed = true
		return 0
	}

	gocv.CalcOpticalFlowFarneback(m.prevGray, gray, &m.flow,
		0.5, // pyramid scale
		3,   // levels
		15,  // window size
		3,   // iterations
		5,   // polyN
		1.2, // polySigma
		0,
	)

	m.prevGray.Close()
	m.prevGray = gray

	channels := gocv.Split(m.flow)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 2 {
		return 0
	}

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(channels[0], channels[1], &mag)
	return mag.Mean().Val1
}

// Close releases the retained mats.
func (m *FarnebackMotion) Close() {
	m.prevGray.Close()
	m.flow.Close()
}
