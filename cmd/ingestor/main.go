// The stream ingestor captures RTSP streams for every configured camera,
// applies adaptive sampling, and publishes JPEG frames onto the frame bus.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trinetra-retail/trinetra/internal/api"
	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/framebus"
	"github.com/trinetra-retail/trinetra/internal/ingest"
)

func main() {
	cfg := config.IngestorFromEnv()

	cameras, err := config.LoadCameras(cfg.CameraConfigs, cfg.TargetFPS)
	if err != nil {
		log.Fatalf("[Main] Camera config: %v", err)
	}

	bus, err := framebus.NewFromURL(cfg.RedisURL, cfg.FrameBufferMax)
	if err != nil {
		log.Fatalf("[Main] Frame bus: %v", err)
	}
	defer bus.Close()

	svc := ingest.NewService(bus, cameras)
	svc.Start()

	server := api.New(cfg.MetricsPort, svc)
	server.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[Main] Shutting down ingestor")
	server.Stop()
	svc.Stop()
}
