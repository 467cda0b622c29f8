package ingest

import (
	"context"
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/frame"
	"github.com/trinetra-retail/trinetra/internal/framebus"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const (
	// Inference input resolution. Frames are resized here, once, so no
	// downstream consumer ever needs the capture resolution.
	inferenceWidth  = 640
	inferenceHeight = 640

	jpegQuality = 85

	// queuePollTimeout bounds each queue wait so the stop flag is
	// observed promptly on an idle camera.
	queuePollTimeout = 1 * time.Second

	busCallTimeout = 2 * time.Second
)

// Publisher drains one camera's frame queue into the frame bus, applying
// the adaptive sampling decision per frame.
type Publisher struct {
	cam     config.Camera
	bus     *framebus.Bus
	queue   <-chan queuedFrame
	sampler *Sampler
	motion  *FarnebackMotion
	stop    <-chan struct{}
}

func NewPublisher(cam config.Camera, bus *framebus.Bus, queue <-chan queuedFrame, sampler *Sampler, stop <-chan struct{}) *Publisher {
	return &Publisher{
		cam:     cam,
		bus:     bus,
		queue:   queue,
		sampler: sampler,
		motion:  NewFarnebackMotion(),
		stop:    stop,
	}
}

// Run loops until stop, then drains whatever the reader already queued so
// shutdown loses no decoded frames.
func (p *Publisher) Run() {
	defer p.motion.Close()

	for {
		select {
		case <-p.stop:
			p.drain()
			return
		case qf := <-p.queue:
			p.publish(qf)
		case <-time.After(queuePollTimeout):
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case qf := <-p.queue:
			p.publish(qf)
		default:
			return
		}
	}
}

func (p *Publisher) publish(qf queuedFrame) {
	defer qf.mat.Close()

	ctx, cancel := context.WithTimeout(context.Background(), busCallTimeout)
	defer cancel()

	stream := framebus.StreamKey(p.cam.ID)
	start := time.Now()

	// Bus occupancy drives the backpressure half of the sampling policy.
	// A failed length probe reads as an empty bus: sampling proceeds on
	// motion alone rather than stalling the camera.
	fillPct := 0.0
	if length, err := p.bus.Len(ctx, stream); err == nil {
		metrics.RedisStreamLength.WithLabelValues(p.cam.ID).Set(float64(length))
		fillPct = float64(length) / float64(p.bus.MaxLen()) * 100
	}

	forward := p.sampler.ShouldForward(fillPct, func() float64 {
		return p.motion.Estimate(qf.mat)
	})
	if !forward {
		metrics.FramesDropped.WithLabelValues(p.cam.ID).Inc()
		return
	}

	jpeg, err := encodeJPEG(qf.mat)
	if err != nil {
		metrics.CorruptedFrames.WithLabelValues(p.cam.ID).Inc()
		log.Printf("[Ingestor] JPEG encode failed for %s: %v", p.cam.ID, err)
		return
	}

	f := frame.Frame{
		CameraID:   p.cam.ID,
		CameraType: p.cam.Type,
		IngestTS:   qf.ingestTS,
		JPEG:       jpeg,
	}
	if _, err := p.bus.Append(ctx, stream, f.Fields()); err != nil {
		// No local buffering beyond the in-process queue: log, count, and
		// move on to the next frame. Backpressure shows up as drops.
		metrics.FramesDropped.WithLabelValues(p.cam.ID).Inc()
		log.Printf("[Ingestor] Bus append failed for %s: %v", p.cam.ID, err)
		return
	}

	metrics.FrameIngestLatency.Observe(time.Since(start).Seconds())
	metrics.FramesIngested.WithLabelValues(p.cam.ID, p.cam.Type).Inc()
}

func encodeJPEG(src gocv.Mat) ([]byte, error) {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(inferenceWidth, inferenceHeight), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resized, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
