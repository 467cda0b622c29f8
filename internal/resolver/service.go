package resolver

import (
	"context"
	"encoding/json"
	"log"

	"github.com/trinetra-retail/trinetra/internal/eventbus"
	"github.com/trinetra-retail/trinetra/internal/events"
)

// Service pumps the detections topic into the resolver until its context
// is cancelled.
type Service struct {
	reader   *eventbus.Reader
	resolver *Resolver
}

func NewService(reader *eventbus.Reader, resolver *Resolver) *Service {
	return &Service{reader: reader, resolver: resolver}
}

// Run consumes until the context is cancelled. Messages that fail to
// decode are logged and skipped; the consumer group offset still
// advances past them.
func (s *Service) Run(ctx context.Context) {
	log.Printf("[Resolver] Consuming %s", events.TopicDetections)

	for {
		msg, err := s.reader.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[Resolver] Consumer stopped")
				return
			}
			log.Printf("[Resolver] Fetch failed: %v", err)
			continue
		}

		var event events.InferenceEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("[Resolver] Malformed event at offset %d: %v", msg.Offset, err)
			continue
		}

		s.resolver.Resolve(ctx, event)
	}
}
