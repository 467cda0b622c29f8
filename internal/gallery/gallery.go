// Package gallery wraps the Qdrant collection holding enrolled customer
// embeddings. The resolver only searches it; enrollment writes go
// through the enroll tool.
package gallery

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/trinetra-retail/trinetra/internal/events"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const (
	// DefaultCollection holds one point per enrolled customer embedding.
	DefaultCollection = "face_embeddings"

	// topK bounds each ANN search. The gate walks candidates best-first,
	// so five is enough to survive a physics rejection or two.
	topK = 5

	hnswM                 = 16
	hnswEfConstruct       = 200
	hnswFullScanThreshold = 10000
)

// Candidate is one gallery hit above the similarity threshold,
// best-first by score.
type Candidate struct {
	CustomerID string
	Score      float64
	VIPTier    string
}

// Searcher is the resolver-side surface of the gallery.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, threshold float64) ([]Candidate, error)
}

// Gallery is the Qdrant-backed implementation.
type Gallery struct {
	client     *qdrant.Client
	collection string
}

// New connects to the Qdrant gRPC endpoint given as a URL, e.g.
// "http://qdrant:6334". An https scheme enables TLS.
func New(rawURL, apiKey, collection string) (*Gallery, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url %q: %w", rawURL, err)
	}
	port := 6334
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("parse qdrant port %q: %w", p, err)
		}
	}
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s: %w", rawURL, err)
	}
	return &Gallery{client: client, collection: collection}, nil
}

// EnsureCollection creates the gallery collection if it does not exist.
// Idempotent, so every service can call it at startup.
func (g *Gallery) EnsureCollection(ctx context.Context) error {
	exists, err := g.client.CollectionExists(ctx, g.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = g.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: g.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(events.EmbeddingDim),
			Distance: qdrant.Distance_Cosine,
		}),
		HnswConfig: &qdrant.HnswConfigDiff{
			M:                 qdrant.PtrOf(uint64(hnswM)),
			EfConstruct:       qdrant.PtrOf(uint64(hnswEfConstruct)),
			FullScanThreshold: qdrant.PtrOf(uint64(hnswFullScanThreshold)),
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", g.collection, err)
	}
	log.Printf("[Gallery] Created collection %s", g.collection)
	return nil
}

// Search returns up to five candidates scoring at or above threshold,
// best-first. An empty result means the embedding is UNKNOWN.
func (g *Gallery) Search(ctx context.Context, embedding []float32, threshold float64) ([]Candidate, error) {
	start := time.Now()
	points, err := g.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: g.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("gallery search: %w", err)
	}
	metrics.QdrantQueryLatency.Observe(time.Since(start).Seconds())

	candidates := make([]Candidate, 0, len(points))
	for _, p := range points {
		c := Candidate{Score: float64(p.GetScore())}
		if v, ok := p.GetPayload()["customer_id"]; ok {
			c.CustomerID = v.GetStringValue()
		}
		if v, ok := p.GetPayload()["vip_tier"]; ok {
			c.VIPTier = v.GetStringValue()
		}
		if c.CustomerID == "" {
			// A point without an identity payload cannot resolve anyone.
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Enroll upserts one embedding for a customer. Multiple enrollments per
// customer are expected; each gets its own point keyed by pointID.
func (g *Gallery) Enroll(ctx context.Context, pointID, customerID, vipTier string, embedding []float32) error {
	payload := map[string]any{
		"customer_id":   customerID,
		"enrollment_ts": float64(time.Now().UnixNano()) / 1e9,
	}
	if vipTier != "" {
		payload["vip_tier"] = vipTier
	}

	_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: g.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectors(embedding...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("enroll %s: %w", customerID, err)
	}
	return nil
}

func (g *Gallery) Close() error {
	return g.client.Close()
}
