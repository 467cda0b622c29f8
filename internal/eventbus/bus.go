// Package eventbus wraps the Kafka producers and consumers linking the
// inference workers to the identity resolver. Messages are keyed by
// camera_id so every camera's events land on one partition, preserving
// per-camera ordering for the temporal gate downstream.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 5 * time.Second

	// maxAttempts bounds producer retries before the message is counted
	// as lost. At-least-once delivery tolerates the resulting duplicates.
	maxAttempts = 5

	commitInterval = 1 * time.Second
)

// Publisher is the producer-side surface consumed by the worker and the
// resolver. Implemented by Writer, faked in tests.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// Writer produces JSON messages onto one topic.
type Writer struct {
	topic string
	kw    *kafka.Writer
}

func NewWriter(brokers []string, topic string) *Writer {
	return &Writer{
		topic: topic,
		kw: &kafka.Writer{
			Addr:  kafka.TCP(brokers...),
			Topic: topic,
			// Hash keeps each camera pinned to one partition.
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Lz4,
			MaxAttempts:  maxAttempts,
			WriteTimeout: writeTimeout,
		},
	}
}

// Publish marshals payload to JSON and writes it keyed by key.
func (w *Writer) Publish(ctx context.Context, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", w.topic, err)
	}
	if err := w.kw.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", w.topic, err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.kw.Close()
}

// Reader consumes one topic inside a consumer group. Offsets are
// committed on an interval rather than per message; a crash replays the
// uncommitted tail, which downstream dedup absorbs.
type Reader struct {
	kr *kafka.Reader
}

func NewReader(brokers []string, topic, group string) *Reader {
	return &Reader{
		kr: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        group,
			CommitInterval: commitInterval,
		}),
	}
}

// Fetch blocks until the next message or context cancellation.
func (r *Reader) Fetch(ctx context.Context) (kafka.Message, error) {
	return r.kr.ReadMessage(ctx)
}

func (r *Reader) Close() error {
	if err := r.kr.Close(); err != nil {
		log.Printf("[EventBus] Reader close: %v", err)
		return err
	}
	return nil
}
