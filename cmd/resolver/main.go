// The identity resolver consumes inference events from the event bus,
// resolves identities against the Qdrant gallery with spatiotemporal
// gating, and publishes resolved identities and alerts.
package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"github.com/trinetra-retail/trinetra/internal/api"
	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/eventbus"
	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/gallery"
	"github.com/trinetra-retail/trinetra/internal/resolver"
)

func main() {
	cfg := config.ResolverFromEnv()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, err := gallery.New(cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("[Main] Gallery: %v", err)
	}
	defer g.Close()
	if err := g.EnsureCollection(ctx); err != nil {
		log.Fatalf("[Main] Gallery collection: %v", err)
	}

	travel, err := resolver.NewTravelWatcher(cfg.TravelMatrix)
	if err != nil {
		log.Fatalf("[Main] Travel matrix: %v", err)
	}
	go func() {
		if err := travel.Watch(ctx); err != nil {
			log.Printf("[Main] Travel matrix watch: %v", err)
		}
	}()

	registry := resolver.NewRegistry(cfg.RegistryTTL)
	gate := resolver.NewGate(registry, travel.Matrix, cfg.GateWindow.Seconds())
	dedup, err := resolver.NewDedup(cfg.DedupMaxKeys, cfg.DedupTTL)
	if err != nil {
		log.Fatalf("[Main] Dedup: %v", err)
	}

	brokers := strings.Split(cfg.KafkaBrokers, ",")
	identities := eventbus.NewWriter(brokers, events.TopicIdentities)
	defer identities.Close()
	alerts := eventbus.NewWriter(brokers, events.TopicAlerts)
	defer alerts.Close()

	reader := eventbus.NewReader(brokers, events.TopicDetections, cfg.ConsumerGroup)
	defer reader.Close()

	server := api.New(cfg.MetricsPort, nil)
	server.Start()
	defer server.Stop()

	res := resolver.New(g, gate, registry, dedup, identities, alerts, cfg.CosineThreshold)
	resolver.NewService(reader, res).Run(ctx)

	log.Printf("[Main] Resolver shut down")
}
