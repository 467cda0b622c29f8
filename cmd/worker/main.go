// The inference worker drains frame micro-batches from the frame bus,
// runs person detection and face embedding, and publishes inference
// events onto the event bus.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/trinetra-retail/trinetra/internal/api"
	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/eventbus"
	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/framebus"
	"github.com/trinetra-retail/trinetra/internal/inference"
	"github.com/trinetra-retail/trinetra/internal/worker"
)

func main() {
	cfg := config.WorkerFromEnv()

	if err := inference.InitRuntime(cfg.OnnxRuntimeLib); err != nil {
		log.Fatalf("[Main] ONNX runtime: %v", err)
	}

	detector, err := inference.NewPersonDetector(cfg.YOLOModelPath)
	if err != nil {
		log.Fatalf("[Main] Detector: %v", err)
	}
	defer detector.Close()

	embedder, err := inference.NewFaceEmbedder(cfg.ArcFaceModelPath)
	if err != nil {
		log.Fatalf("[Main] Embedder: %v", err)
	}
	defer embedder.Close()

	bus, err := framebus.NewFromURL(cfg.RedisURL, cfg.FrameBufferMax)
	if err != nil {
		log.Fatalf("[Main] Frame bus: %v", err)
	}
	defer bus.Close()

	publisher := eventbus.NewWriter(strings.Split(cfg.KafkaBrokers, ","), events.TopicDetections)
	defer publisher.Close()

	hostname, _ := os.Hostname()
	consumer := fmt.Sprintf("worker-%s-%d", hostname, os.Getpid())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.New(cfg.MetricsPort, nil)
	server.Start()
	defer server.Stop()

	go worker.PollGPU(ctx)

	svc := worker.NewService(bus, detector, embedder, publisher, consumer, cfg.BatchSize, cfg.BatchTimeout)
	svc.Run(ctx)

	log.Printf("[Main] Worker shut down")
}
