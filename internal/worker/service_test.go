package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/frame"
	"github.com/trinetra-retail/trinetra/internal/framebus"
)

type fakeDetector struct {
	perFrame []events.Detection
}

func (f *fakeDetector) DetectBatch(frames []image.Image) [][]events.Detection {
	out := make([][]events.Detection, len(frames))
	for i := range out {
		out[i] = f.perFrame
	}
	return out
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) EmbedBatch(crops []image.Image) [][]float32 {
	out := make([][]float32, len(crops))
	for i := range out {
		out[i] = make([]float32, events.EmbeddingDim)
		out[i][0] = float32(i + 1)
	}
	return out
}

type fakePublisher struct {
	published []events.InferenceEvent
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload.(events.InferenceEvent))
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
	return buf.Bytes()
}

func setupBus(t *testing.T) (*framebus.Bus, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return framebus.New(rdb, 100), rdb
}

func appendFrame(t *testing.T, bus *framebus.Bus, camID, camType string, jpegData []byte) {
	t.Helper()
	f := frame.Frame{CameraID: camID, CameraType: camType, IngestTS: 1724580000.5, JPEG: jpegData}
	_, err := bus.Append(context.Background(), framebus.StreamKey(camID), f.Fields())
	require.NoError(t, err)
}

func pendingCount(t *testing.T, rdb *redis.Client, stream string) int64 {
	t.Helper()
	p, err := rdb.XPending(context.Background(), stream, framebus.ConsumerGroup).Result()
	require.NoError(t, err)
	return p.Count
}

func TestAccumulator_SizeTrigger(t *testing.T) {
	acc := NewAccumulator(4, 20*time.Millisecond)

	for i := 0; i < 3; i++ {
		acc.Add(framebus.Entry{})
		assert.False(t, acc.Ready(time.Now()))
	}
	acc.Add(framebus.Entry{})
	assert.True(t, acc.Ready(time.Now()))

	assert.Len(t, acc.Drain(), 4)
	assert.Zero(t, acc.Pending())
	assert.False(t, acc.Ready(time.Now()))
}

func TestAccumulator_TimeoutTrigger(t *testing.T) {
	acc := NewAccumulator(4, 20*time.Millisecond)

	acc.Add(framebus.Entry{})
	assert.False(t, acc.Ready(time.Now()))
	// A lone frame flushes once its wait reaches the timeout.
	assert.True(t, acc.Ready(time.Now().Add(20*time.Millisecond)))
}

func TestAccumulator_EmptyNeverReady(t *testing.T) {
	acc := NewAccumulator(4, 20*time.Millisecond)
	assert.False(t, acc.Ready(time.Now().Add(time.Hour)))
	assert.Empty(t, acc.Drain())
}

func TestProcessBatch_PublishesAndAcks(t *testing.T) {
	bus, rdb := setupBus(t)
	ctx := context.Background()
	stream := framebus.StreamKey("cam-1")

	require.NoError(t, bus.EnsureGroup(ctx, stream, framebus.ConsumerGroup))
	appendFrame(t, bus, "cam-1", "entrance", encodeTestJPEG(t))
	appendFrame(t, bus, "cam-1", "entrance", encodeTestJPEG(t))

	entries, err := bus.ReadGroup(ctx, framebus.ConsumerGroup, "w-1", []string{stream}, 4, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	pub := &fakePublisher{}
	detector := &fakeDetector{perFrame: []events.Detection{
		{BBox: []float64{0.1, 0.1, 0.5, 0.9}, Confidence: 0.9},
	}}
	svc := NewService(bus, detector, &fakeEmbedder{}, pub, "w-1", 4, 20*time.Millisecond)

	svc.processBatch(ctx, entries)

	require.Len(t, pub.published, 2)
	ev := pub.published[0]
	assert.Equal(t, "cam-1", ev.CameraID)
	assert.Equal(t, "entrance", ev.CameraType)
	assert.Equal(t, 1724580000.5, ev.IngestTS)
	assert.Greater(t, ev.WorkerTS, ev.IngestTS)
	require.Len(t, ev.Detections, 1)
	require.Len(t, ev.Embeddings, 1)
	assert.Len(t, ev.Embeddings[0], events.EmbeddingDim)

	// Published means acked: nothing left pending in the group.
	assert.Zero(t, pendingCount(t, rdb, stream))
}

func TestProcessBatch_PublishFailureLeavesPending(t *testing.T) {
	bus, rdb := setupBus(t)
	ctx := context.Background()
	stream := framebus.StreamKey("cam-1")

	require.NoError(t, bus.EnsureGroup(ctx, stream, framebus.ConsumerGroup))
	appendFrame(t, bus, "cam-1", "entrance", encodeTestJPEG(t))

	entries, err := bus.ReadGroup(ctx, framebus.ConsumerGroup, "w-1", []string{stream}, 4, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewService(bus, &fakeDetector{}, &fakeEmbedder{}, pub, "w-1", 4, 20*time.Millisecond)

	svc.processBatch(ctx, entries)

	// Unacked frames stay pending for redelivery.
	assert.Equal(t, int64(1), pendingCount(t, rdb, stream))
}

func TestProcessBatch_CorruptFrameAckedWithoutEvent(t *testing.T) {
	bus, rdb := setupBus(t)
	ctx := context.Background()
	stream := framebus.StreamKey("cam-1")

	require.NoError(t, bus.EnsureGroup(ctx, stream, framebus.ConsumerGroup))
	appendFrame(t, bus, "cam-1", "entrance", []byte("not a jpeg"))

	entries, err := bus.ReadGroup(ctx, framebus.ConsumerGroup, "w-1", []string{stream}, 4, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	pub := &fakePublisher{}
	svc := NewService(bus, &fakeDetector{}, &fakeEmbedder{}, pub, "w-1", 4, 20*time.Millisecond)

	svc.processBatch(ctx, entries)

	assert.Empty(t, pub.published)
	// Poison entries are acked so they never redeliver.
	assert.Zero(t, pendingCount(t, rdb, stream))
}

func TestProcessBatch_NoDetectionsStillPublishes(t *testing.T) {
	bus, _ := setupBus(t)
	ctx := context.Background()
	stream := framebus.StreamKey("cam-1")

	require.NoError(t, bus.EnsureGroup(ctx, stream, framebus.ConsumerGroup))
	appendFrame(t, bus, "cam-1", "tracking", encodeTestJPEG(t))

	entries, err := bus.ReadGroup(ctx, framebus.ConsumerGroup, "w-1", []string{stream}, 4, 10*time.Millisecond)
	require.NoError(t, err)

	pub := &fakePublisher{}
	svc := NewService(bus, &fakeDetector{}, &fakeEmbedder{}, pub, "w-1", 4, 20*time.Millisecond)

	svc.processBatch(ctx, entries)

	// Empty frames still produce an event; liveness depends on it.
	require.Len(t, pub.published, 1)
	assert.Empty(t, pub.published[0].Detections)
	assert.Empty(t, pub.published[0].Embeddings)
}
