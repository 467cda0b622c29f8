package resolver

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trinetra-retail/trinetra/internal/eventbus"
	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/gallery"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const cameraTypeBilling = "billing"

// vipAlertCameras are the camera types where a VIP sighting is worth a
// concierge notification. Seeing a VIP at a tracking camera mid-store
// is noise; seeing them arrive is the signal.
var vipAlertCameras = map[string]bool{
	"entrance":     true,
	"face_capture": true,
}

// Resolver resolves the identity behind each inference event by ANN
// search over the gallery, gated by spatiotemporal plausibility.
type Resolver struct {
	searcher   gallery.Searcher
	gate       *Gate
	registry   *Registry
	dedup      *Dedup
	identities eventbus.Publisher
	alerts     eventbus.Publisher
	threshold  float64
}

func New(searcher gallery.Searcher, gate *Gate, registry *Registry, dedup *Dedup, identities, alerts eventbus.Publisher, threshold float64) *Resolver {
	return &Resolver{
		searcher:   searcher,
		gate:       gate,
		registry:   registry,
		dedup:      dedup,
		identities: identities,
		alerts:     alerts,
		threshold:  threshold,
	}
}

// Resolve handles one inference event end to end: dedup, gallery search,
// gating, identity publication and alerting. Every consumed event yields
// exactly one ResolvedIdentity; a frame without detections resolves to
// UNKNOWN rather than going silent, so downstream consumers never see a
// gap in the stream.
func (r *Resolver) Resolve(ctx context.Context, event events.InferenceEvent) {
	if r.dedup.Seen(event.CameraID, event.IngestTS) {
		metrics.DuplicateEvents.Inc()
		return
	}
	r.registry.NoteEvent(event.IngestTS)

	start := time.Now()

	identity := events.ResolvedIdentity{
		EventID:     uuid.NewString(),
		CameraID:    event.CameraID,
		CameraType:  event.CameraType,
		MatchMethod: events.MatchMethodUnknown,
		IngestTS:    event.IngestTS,
	}

	if len(event.Detections) == 0 || len(event.Embeddings) == 0 {
		// Nobody in frame. Still an UNKNOWN verdict, but never an alert.
		metrics.ReIDUnknowns.WithLabelValues(event.CameraID).Inc()
		r.publishIdentity(ctx, identity, start)
		return
	}

	// One resolution per frame: the first detection carries the primary
	// subject. Secondary detections wait for a tracker to assign track
	// IDs before they can be resolved individually.
	det := event.Detections[0]
	embedding := event.Embeddings[0]

	identity.TrackID = det.TrackID
	identity.BBox = det.BBox
	identity.Embedding = embedding

	if match := r.match(ctx, event, embedding); match != nil {
		identity.CustomerID = &match.CustomerID
		identity.Confidence = match.Score
		identity.MatchMethod = events.MatchMethodANN
		r.registry.Record(match.CustomerID, event.CameraID, event.IngestTS, embedding)
		metrics.ReIDMatches.WithLabelValues(event.CameraID).Inc()

		if match.VIPTier != "" && vipAlertCameras[event.CameraType] {
			r.emitAlert(ctx, events.Alert{
				AlertID:    uuid.NewString(),
				AlertType:  events.AlertVIPDetected,
				CameraID:   event.CameraID,
				CustomerID: &match.CustomerID,
				Severity:   events.SeverityLow,
				TS:         event.IngestTS,
				Metadata:   map[string]string{"vip_tier": match.VIPTier},
			})
		}
	} else {
		metrics.ReIDUnknowns.WithLabelValues(event.CameraID).Inc()

		if event.CameraType == cameraTypeBilling {
			r.emitAlert(ctx, events.Alert{
				AlertID:   uuid.NewString(),
				AlertType: events.AlertUnknownAtBilling,
				CameraID:  event.CameraID,
				Severity:  events.SeverityMedium,
				TS:        event.IngestTS,
				Metadata:  map[string]string{"track_id": strconv.Itoa(det.TrackID)},
			})
		}
	}

	r.publishIdentity(ctx, identity, start)
}

func (r *Resolver) publishIdentity(ctx context.Context, identity events.ResolvedIdentity, start time.Time) {
	identity.ResolveTS = float64(time.Now().UnixNano()) / 1e9
	if err := r.identities.Publish(ctx, identity.CameraID, identity); err != nil {
		log.Printf("[Resolver] Identity publish failed for %s: %v", identity.CameraID, err)
	}
	metrics.ReIDLatency.Observe(time.Since(start).Seconds())
}

// match returns the best gate-approved candidate, or nil for UNKNOWN.
// Candidates arrive best-first; the first one the gate accepts wins, so
// a physically impossible top hit falls through to the runner-up rather
// than forcing an UNKNOWN.
func (r *Resolver) match(ctx context.Context, event events.InferenceEvent, embedding []float32) *gallery.Candidate {
	if isZeroVector(embedding) {
		// Embedding failed upstream. Searching would only return noise.
		return nil
	}

	candidates, err := r.searcher.Search(ctx, embedding, r.threshold)
	if err != nil {
		log.Printf("[Resolver] Gallery search failed for %s: %v", event.CameraID, err)
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if r.gate.Check(c.CustomerID, event.CameraID, event.IngestTS) == Accept {
			return c
		}
	}
	return nil
}

func (r *Resolver) emitAlert(ctx context.Context, alert events.Alert) {
	if err := r.alerts.Publish(ctx, alert.CameraID, alert); err != nil {
		log.Printf("[Resolver] Alert publish failed for %s: %v", alert.CameraID, err)
		return
	}
	metrics.AlertsEmitted.WithLabelValues(alert.AlertType).Inc()
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
