package worker

import (
	"context"
	"image"
	"log"
	"time"

	"github.com/trinetra-retail/trinetra/internal/eventbus"
	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/frame"
	"github.com/trinetra-retail/trinetra/internal/framebus"
	"github.com/trinetra-retail/trinetra/internal/inference"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const (
	// readBlock keeps each bus poll short so batch timeouts and shutdown
	// are observed promptly.
	readBlock = 50 * time.Millisecond

	// discoverInterval re-scans the bus for streams of newly started
	// cameras.
	discoverInterval = 30 * time.Second

	publishTimeout = 5 * time.Second
)

// Detector produces per-frame person detections for a batch of frames.
type Detector interface {
	DetectBatch(frames []image.Image) [][]events.Detection
}

// Embedder produces one embedding per person crop.
type Embedder interface {
	EmbedBatch(crops []image.Image) [][]float32
}

// Service is one inference worker: a member of the shared consumer group
// draining every camera stream on the frame bus.
type Service struct {
	bus       *framebus.Bus
	detector  Detector
	embedder  Embedder
	publisher eventbus.Publisher
	consumer  string
	acc       *Accumulator

	streams      []string
	lastDiscover time.Time
}

func NewService(bus *framebus.Bus, detector Detector, embedder Embedder, publisher eventbus.Publisher, consumer string, batchSize int, batchTimeout time.Duration) *Service {
	return &Service{
		bus:       bus,
		detector:  detector,
		embedder:  embedder,
		publisher: publisher,
		consumer:  consumer,
		acc:       NewAccumulator(batchSize, batchTimeout),
	}
}

// Run drains the frame bus until the context is cancelled. The pending
// micro-batch is flushed before returning so accepted frames are never
// abandoned unprocessed.
func (s *Service) Run(ctx context.Context) {
	log.Printf("[Worker] Consumer %s starting", s.consumer)

	for {
		if ctx.Err() != nil {
			s.flush(context.Background())
			log.Printf("[Worker] Consumer %s stopped", s.consumer)
			return
		}

		s.refreshStreams(ctx)
		if len(s.streams) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		entries, err := s.bus.ReadGroup(ctx, framebus.ConsumerGroup, s.consumer, s.streams, int64(s.acc.size), readBlock)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("[Worker] Bus read failed: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, e := range entries {
			s.acc.Add(e)
		}
		if s.acc.Ready(time.Now()) {
			s.flush(ctx)
		}
	}
}

// refreshStreams discovers camera streams and ensures the consumer group
// exists on each. New cameras are picked up within discoverInterval.
func (s *Service) refreshStreams(ctx context.Context) {
	if time.Since(s.lastDiscover) < discoverInterval && len(s.streams) > 0 {
		return
	}
	s.lastDiscover = time.Now()

	streams, err := s.bus.DiscoverStreams(ctx)
	if err != nil {
		log.Printf("[Worker] Stream discovery failed: %v", err)
		return
	}
	for _, stream := range streams {
		if err := s.bus.EnsureGroup(ctx, stream, framebus.ConsumerGroup); err != nil {
			log.Printf("[Worker] Group create failed for %s: %v", stream, err)
		}
	}
	if len(streams) != len(s.streams) {
		log.Printf("[Worker] Consuming %d camera streams", len(streams))
	}
	s.streams = streams
}

func (s *Service) flush(ctx context.Context) {
	batch := s.acc.Drain()
	if len(batch) == 0 {
		return
	}
	s.processBatch(ctx, batch)
}

// processBatch runs the full inference pipeline over one micro-batch.
// Entries are acknowledged only after their event is on the event bus;
// a failed publish leaves the entry pending for redelivery.
func (s *Service) processBatch(ctx context.Context, batch []framebus.Entry) {
	type item struct {
		entry framebus.Entry
		meta  *frame.Frame
		img   image.Image
	}

	var items []item
	for _, e := range batch {
		meta, err := frame.ParseFields(e.Fields)
		if err != nil {
			// Malformed entries are acknowledged so they never redeliver.
			metrics.CorruptedFrames.WithLabelValues(framebus.CameraID(e.Stream)).Inc()
			s.ack(e)
			continue
		}
		img, err := inference.DecodeJPEG(meta.JPEG)
		if err != nil {
			metrics.CorruptedFrames.WithLabelValues(meta.CameraID).Inc()
			s.ack(e)
			continue
		}
		items = append(items, item{entry: e, meta: meta, img: img})
	}
	if len(items) == 0 {
		return
	}

	frames := make([]image.Image, len(items))
	for i := range items {
		frames[i] = items[i].img
	}
	detections := s.detector.DetectBatch(frames)

	// Crops from every frame share one embedding pass; counts map the flat
	// result back to frames.
	var crops []image.Image
	counts := make([]int, len(items))
	for i := range items {
		counts[i] = len(detections[i])
		for _, det := range detections[i] {
			crops = append(crops, inference.CropRegion(items[i].img, det.BBox))
		}
	}
	embeddings := s.embedder.EmbedBatch(crops)

	workerTS := float64(time.Now().UnixNano()) / 1e9
	offset := 0
	for i, it := range items {
		event := events.InferenceEvent{
			CameraID:   it.meta.CameraID,
			CameraType: it.meta.CameraType,
			IngestTS:   it.meta.IngestTS,
			WorkerTS:   workerTS,
			Detections: detections[i],
			Embeddings: embeddings[offset : offset+counts[i]],
		}
		offset += counts[i]

		pubCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := s.publisher.Publish(pubCtx, event.CameraID, event)
		cancel()
		if err != nil {
			metrics.KafkaPublishErrors.Inc()
			log.Printf("[Worker] Publish failed for %s, leaving frame pending: %v", event.CameraID, err)
			continue
		}

		s.ack(it.entry)
		metrics.WorkerFramesProcessed.WithLabelValues(event.CameraID).Inc()
		metrics.DetectionsTotal.WithLabelValues(event.CameraID).Add(float64(counts[i]))
	}
}

func (s *Service) ack(e framebus.Entry) {
	ackCtx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.bus.Ack(ackCtx, e.Stream, framebus.ConsumerGroup, e.ID); err != nil {
		log.Printf("[Worker] Ack failed for %s/%s: %v", e.Stream, e.ID, err)
	}
}
