// Package framebus wraps the per-camera Redis Streams that buffer sampled
// frames between the ingestor and the inference workers. Each stream is an
// append-only bounded FIFO with approximate tail-trim; consumer groups give
// at-least-once delivery across worker replicas.
package framebus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamPrefix keys the per-camera frame streams: frames:{camera_id}.
	StreamPrefix = "frames:"

	// ConsumerGroup is shared by all inference worker replicas.
	ConsumerGroup = "inference-workers"
)

// StreamKey returns the frame stream key for a camera.
func StreamKey(cameraID string) string {
	return StreamPrefix + cameraID
}

// CameraID recovers the camera id from a stream key.
func CameraID(stream string) string {
	return strings.TrimPrefix(stream, StreamPrefix)
}

// Entry is one delivered stream entry. ID must be passed back to Ack once
// the entry's frame has been fully processed and its event published.
type Entry struct {
	Stream string
	ID     string
	Fields map[string]interface{}
}

// Bus is the frame bus client.
type Bus struct {
	rdb    *redis.Client
	maxLen int64
}

func New(rdb *redis.Client, maxLen int) *Bus {
	return &Bus{rdb: rdb, maxLen: int64(maxLen)}
}

// NewFromURL connects using a redis:// URL.
func NewFromURL(url string, maxLen int) (*Bus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), maxLen), nil
}

// Append writes one entry with an approximate MAXLEN cap. Oldest entries
// are trimmed when the cap is exceeded; the drop is the caller's metric.
func (b *Bus) Append(ctx context.Context, stream string, fields map[string]interface{}) (string, error) {
	return b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: fields,
	}).Result()
}

// Len returns the current entry count of a stream.
func (b *Bus) Len(ctx context.Context, stream string) (int64, error) {
	return b.rdb.XLen(ctx, stream).Result()
}

// MaxLen reports the configured cap (used for fill-percentage math).
func (b *Bus) MaxLen() int64 {
	return b.maxLen
}

// EnsureGroup creates the consumer group from the stream start, creating
// the stream if needed. Re-creation is benign: BUSYGROUP is swallowed.
func (b *Bus) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// ReadGroup performs one blocking group read across the given streams,
// returning up to count new entries per stream. A quiet bus returns an
// empty slice, not an error.
func (b *Bus) ReadGroup(ctx context.Context, group, consumer string, streams []string, count int64, block time.Duration) ([]Entry, error) {
	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	res, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  args,
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, s := range res {
		for _, msg := range s.Messages {
			entries = append(entries, Entry{
				Stream: s.Stream,
				ID:     msg.ID,
				Fields: msg.Values,
			})
		}
	}
	return entries, nil
}

// Ack marks an entry as processed within the group.
func (b *Bus) Ack(ctx context.Context, stream, group, id string) error {
	return b.rdb.XAck(ctx, stream, group, id).Err()
}

// DiscoverStreams scans for frame streams matching frames:*. SCAN is used
// instead of KEYS so discovery never stalls a shared Redis.
func (b *Bus) DiscoverStreams(ctx context.Context) ([]string, error) {
	var (
		streams []string
		cursor  uint64
	)
	for {
		keys, next, err := b.rdb.Scan(ctx, cursor, StreamPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan frame streams: %w", err)
		}
		streams = append(streams, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return streams, nil
}

// Close releases the underlying connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
