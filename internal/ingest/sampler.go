package ingest

// Adaptive frame sampling. The sampler decides forward/drop per decoded
// frame from two signals: frame-bus occupancy (backpressure) and scene
// motion. Under backpressure it stretches the sampling interval; under
// high motion it tightens it back toward every frame.

const (
	// HighWaterMarkPct is the bus fill percentage above which the sampler
	// sheds load by increasing the skip interval.
	HighWaterMarkPct = 80.0

	// MotionThreshold is the mean optical-flow magnitude above which a
	// scene counts as high-motion.
	MotionThreshold = 2.5

	// maxIntervalFactor caps the stretched interval at 3x the baseline.
	maxIntervalFactor = 3
)

// Sampler holds per-camera sampling state. Not safe for concurrent use;
// each camera's publisher owns its own Sampler.
type Sampler struct {
	baseInterval    int
	currentInterval int
	frameCount      int
}

// NewSampler derives the baseline interval from the capture and target
// frame rates: forward every Nth frame where N = capture_fps / target_fps.
func NewSampler(captureFPS, targetFPS int) *Sampler {
	base := 1
	if targetFPS > 0 && captureFPS > targetFPS {
		base = captureFPS / targetFPS
	}
	return &Sampler{baseInterval: base, currentInterval: base}
}

// ShouldForward decides whether the current frame goes to the bus.
//
// motion is a callback rather than a value because optical flow is only
// worth computing when the bus is below the high-water mark; during
// backpressure the interval stretches unconditionally.
func (s *Sampler) ShouldForward(fillPct float64, motion func() float64) bool {
	s.frameCount++

	if fillPct > HighWaterMarkPct {
		if s.currentInterval < s.baseInterval*maxIntervalFactor {
			s.currentInterval++
		}
	} else if motion() > MotionThreshold {
		if s.currentInterval > 1 {
			s.currentInterval--
		}
	} else {
		s.currentInterval = s.baseInterval
	}

	return s.frameCount%s.currentInterval == 0
}

// Interval exposes the current sampling interval for logging and tests.
func (s *Sampler) Interval() int {
	return s.currentInterval
}
