package ingest

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

// queueCapacity bounds the in-process hand-off between the blocking
// reader and the async publisher. Full queue drops the oldest frame.
const queueCapacity = 100

// queuedFrame crosses from the reader thread to the publisher goroutine.
// The receiver owns the mat and must Close it.
type queuedFrame struct {
	mat      gocv.Mat
	ingestTS float64
}

// Reader runs the blocking capture loop for one camera. It is isolated
// from the publisher so a slow network read never stalls bus publication
// and a slow bus never stalls the decoder.
type Reader struct {
	cam   config.Camera
	queue chan queuedFrame
	stop  <-chan struct{}
}

func NewReader(cam config.Camera, queue chan queuedFrame, stop <-chan struct{}) *Reader {
	return &Reader{cam: cam, queue: queue, stop: stop}
}

// Run blocks until stop. A dropped stream is never fatal: the reader
// closes the capture, backs off exponentially (1s doubling to a 30s
// ceiling) and reopens. The backoff resets on the first good frame.
func (r *Reader) Run() {
	backoff := newReconnectBackoff()
	cap := r.open()
	defer func() {
		if cap != nil {
			cap.Close()
		}
	}()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		if cap == nil || !cap.Read(&img) {
			delay := backoff.Next()
			log.Printf("[Ingestor] Stream lost for %s, reconnecting in %s", r.cam.ID, delay)
			metrics.StreamReconnects.WithLabelValues(r.cam.ID).Inc()
			if cap != nil {
				cap.Close()
				cap = nil
			}
			if r.sleep(delay) {
				return
			}
			cap = r.open()
			continue
		}

		if img.Empty() {
			metrics.CorruptedFrames.WithLabelValues(r.cam.ID).Inc()
			continue
		}

		backoff.Reset()
		r.enqueue(queuedFrame{mat: img.Clone(), ingestTS: float64(time.Now().UnixNano()) / 1e9})
	}
}

func (r *Reader) open() *gocv.VideoCapture {
	cap, err := gocv.OpenVideoCapture(r.cam.RTSPURL)
	if err != nil {
		log.Printf("[Ingestor] Open failed for %s: %v", r.cam.ID, err)
		return nil
	}
	// Keep OpenCV's internal buffer minimal so ingest_ts stays honest.
	cap.Set(gocv.VideoCaptureBufferSize, 1)
	return cap
}

// enqueue hands the frame to the publisher, evicting the oldest queued
// frame when the queue is full. Eviction counts as a drop.
func (r *Reader) enqueue(f queuedFrame) {
	for {
		select {
		case r.queue <- f:
			return
		default:
			select {
			case old := <-r.queue:
				old.mat.Close()
				metrics.FramesDropped.WithLabelValues(r.cam.ID).Inc()
			default:
			}
		}
	}
}

// sleep waits for the delay unless stopped first.
func (r *Reader) sleep(d time.Duration) (stopped bool) {
	select {
	case <-r.stop:
		return true
	case <-time.After(d):
		return false
	}
}
