package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func noMotion() float64   { return 0 }
func highMotion() float64 { return MotionThreshold + 1 }

func TestNewSampler_BaseInterval(t *testing.T) {
	tests := []struct {
		name       string
		captureFPS int
		targetFPS  int
		want       int
	}{
		{"30 capture 15 target", 30, 15, 2},
		{"30 capture 10 target", 30, 10, 3},
		{"target above capture", 15, 30, 1},
		{"zero target", 30, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(tt.captureFPS, tt.targetFPS)
			assert.Equal(t, tt.want, s.Interval())
		})
	}
}

func TestShouldForward_SteadyState(t *testing.T) {
	// Interval 2: exactly every other frame forwards.
	s := NewSampler(30, 15)

	forwarded := 0
	for i := 0; i < 100; i++ {
		if s.ShouldForward(0, noMotion) {
			forwarded++
		}
	}
	assert.Equal(t, 50, forwarded)
}

func TestShouldForward_BackpressureStretchesInterval(t *testing.T) {
	s := NewSampler(30, 15)

	motionCalled := false
	for i := 0; i < 10; i++ {
		s.ShouldForward(HighWaterMarkPct+1, func() float64 {
			motionCalled = true
			return 0
		})
	}

	// Stretch caps at 3x the baseline.
	assert.Equal(t, s.baseInterval*maxIntervalFactor, s.Interval())
	// Optical flow is never computed while shedding load.
	assert.False(t, motionCalled)
}

func TestShouldForward_MotionTightensInterval(t *testing.T) {
	s := NewSampler(30, 10)

	// Stretch first, then high motion pulls the interval back down to 1.
	for i := 0; i < 10; i++ {
		s.ShouldForward(HighWaterMarkPct+1, noMotion)
	}
	assert.Greater(t, s.Interval(), 1)

	for i := 0; i < 20; i++ {
		s.ShouldForward(0, highMotion)
	}
	assert.Equal(t, 1, s.Interval())
}

func TestShouldForward_ThresholdsAreStrict(t *testing.T) {
	// Fill exactly at the high-water mark does not count as backpressure,
	// and motion exactly at the threshold does not count as high motion.
	s := NewSampler(30, 10)

	s.ShouldForward(HighWaterMarkPct, func() float64 { return MotionThreshold })
	assert.Equal(t, s.baseInterval, s.Interval())

	s.ShouldForward(HighWaterMarkPct+0.1, noMotion)
	assert.Equal(t, s.baseInterval+1, s.Interval())
}

func TestShouldForward_QuietSceneRestoresBaseline(t *testing.T) {
	s := NewSampler(30, 10)

	for i := 0; i < 10; i++ {
		s.ShouldForward(HighWaterMarkPct+1, noMotion)
	}
	s.ShouldForward(0, noMotion)
	assert.Equal(t, s.baseInterval, s.Interval())
}

func TestReconnectBackoff_DoublesAndCaps(t *testing.T) {
	b := newReconnectBackoff()

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 8*time.Second, b.Next())
	assert.Equal(t, 16*time.Second, b.Next())
	assert.Equal(t, 30*time.Second, b.Next())
	assert.Equal(t, 30*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, 1*time.Second, b.Next())
}
