// Package resolver turns inference events into resolved identities by
// searching the embedding gallery and applying the spatiotemporal gate.
package resolver

import (
	"sync"
	"time"

	"github.com/trinetra-retail/trinetra/internal/metrics"
)

// sweepEvery bounds how often the registry scans for expired entries.
// Sweeping per observation would be wasted work at pipeline rates.
const sweepEvery = 1000

// Observation is the last accepted sighting of a customer. The embedding
// of that sighting is kept alongside it so future gating or gallery
// refresh can work from the most recent appearance.
type Observation struct {
	CameraID  string
	TS        float64
	Embedding []float32
}

// Registry tracks where each resolved customer was last seen. Entries
// expire after ttl; expiry is enforced lazily on read and by a periodic
// sweep, so the map never grows past the active population.
type Registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]Observation
	ops     int
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:     ttl,
		entries: make(map[string]Observation),
	}
}

// Last returns the most recent unexpired observation of customerID.
// now is the event timestamp, in seconds since epoch.
func (r *Registry) Last(customerID string, now float64) (Observation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	obs, ok := r.entries[customerID]
	if !ok {
		return Observation{}, false
	}
	if now-obs.TS > r.ttl.Seconds() {
		delete(r.entries, customerID)
		metrics.ActiveIdentities.Set(float64(len(r.entries)))
		return Observation{}, false
	}
	return obs, true
}

// Record stores an accepted sighting.
func (r *Registry) Record(customerID, cameraID string, ts float64, embedding []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[customerID] = Observation{CameraID: cameraID, TS: ts, Embedding: embedding}
	metrics.ActiveIdentities.Set(float64(len(r.entries)))
}

// NoteEvent counts one processed event and sweeps expired entries every
// sweepEvery events. Driving the sweep from the event stream rather than
// from accepted matches keeps the gauge honest even when every event in
// sight resolves to UNKNOWN.
func (r *Registry) NoteEvent(now float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ops++
	if r.ops < sweepEvery {
		return
	}
	r.ops = 0
	for id, obs := range r.entries {
		if now-obs.TS > r.ttl.Seconds() {
			delete(r.entries, id)
		}
	}
	metrics.ActiveIdentities.Set(float64(len(r.entries)))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
