package resolver

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedup absorbs redeliveries from the at-least-once pipeline. A frame is
// identified by its camera and ingest timestamp; a second event with the
// same pair inside the TTL is a replay, not a new frame. The LRU bound
// keeps memory flat under sustained replay storms.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func NewDedup(maxKeys int, ttl time.Duration) (*Dedup, error) {
	cache, err := lru.New[string, time.Time](maxKeys)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}
	return &Dedup{cache: cache, ttl: ttl}, nil
}

// Seen records the frame and reports whether it was already observed
// within the TTL.
func (d *Dedup) Seen(cameraID string, ingestTS float64) bool {
	key := fmt.Sprintf("%s:%.6f", cameraID, ingestTS)
	now := time.Now()

	if at, ok := d.cache.Get(key); ok && now.Sub(at) < d.ttl {
		return true
	}
	d.cache.Add(key, now)
	return false
}
