package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trinetra-retail/trinetra/internal/config"
)

func testMatrix() func() *config.TravelMatrix {
	m := &config.TravelMatrix{
		Default: 3.0,
		Times: map[string]map[string]float64{
			"cam-entrance": {"cam-billing": 20.0},
		},
	}
	return func() *config.TravelMatrix { return m }
}

func newTestGate(registry *Registry) *Gate {
	return NewGate(registry, testMatrix(), 3600)
}

func TestGate_NoPriorSightingAccepts(t *testing.T) {
	gate := newTestGate(NewRegistry(time.Hour))
	assert.Equal(t, Accept, gate.Check("cust-1", "cam-billing", 1000))
}

func TestGate_SameCameraAccepts(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-entrance", 1000, nil)
	gate := newTestGate(registry)

	// Same camera one frame later: no travel involved.
	assert.Equal(t, Accept, gate.Check("cust-1", "cam-entrance", 1000.07))
}

func TestGate_ImpossibleTravelRejects(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-entrance", 1000, nil)
	gate := newTestGate(registry)

	// 5s elapsed against a 20s minimum.
	assert.Equal(t, RejectPhysics, gate.Check("cust-1", "cam-billing", 1005))
}

func TestGate_ExactMinimumTravelAccepts(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-entrance", 1000, nil)
	gate := newTestGate(registry)

	// Exactly the minimum is plausible; only strictly less is rejected.
	assert.Equal(t, Accept, gate.Check("cust-1", "cam-billing", 1020))
}

func TestGate_UnlistedPairUsesDefault(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-a", 1000, nil)
	gate := newTestGate(registry)

	assert.Equal(t, RejectPhysics, gate.Check("cust-1", "cam-b", 1002))
	assert.Equal(t, Accept, gate.Check("cust-1", "cam-b", 1003))
}

func TestGate_OutsideWindowAccepts(t *testing.T) {
	registry := NewRegistry(2 * time.Hour)
	registry.Record("cust-1", "cam-entrance", 1000, nil)
	gate := newTestGate(registry)

	// Sighting older than the gate window is not gated even though the
	// registry still remembers it.
	assert.Equal(t, Accept, gate.Check("cust-1", "cam-billing", 1000+3601))
}

func TestRegistry_TTLExpiry(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-a", 1000, nil)

	_, ok := registry.Last("cust-1", 1000+3599)
	assert.True(t, ok)

	_, ok = registry.Last("cust-1", 1000+3601)
	assert.False(t, ok)
	assert.Zero(t, registry.Len())
}

func TestRegistry_RecordOverwrites(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-1", "cam-a", 1000, nil)
	registry.Record("cust-1", "cam-b", 1010, nil)

	obs, ok := registry.Last("cust-1", 1011)
	assert.True(t, ok)
	assert.Equal(t, "cam-b", obs.CameraID)
	assert.Equal(t, 1010.0, obs.TS)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_SweepEvictsExpired(t *testing.T) {
	registry := NewRegistry(time.Hour)
	registry.Record("cust-old", "cam-a", 1000, nil)
	registry.Record("cust-live", "cam-a", 1000+3700, nil)

	// The sweep is driven by processed events, not accepted matches, so
	// an all-UNKNOWN stream still evicts stale entries.
	for i := 0; i < sweepEvery; i++ {
		registry.NoteEvent(1000 + 3700)
	}

	_, ok := registry.Last("cust-old", 1000+3700)
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_StoresEmbedding(t *testing.T) {
	registry := NewRegistry(time.Hour)
	emb := []float32{0.25, -0.5, 0.75}
	registry.Record("cust-1", "cam-a", 1000, emb)

	obs, ok := registry.Last("cust-1", 1001)
	assert.True(t, ok)
	assert.Equal(t, emb, obs.Embedding)
}

func TestDedup_SuppressesReplay(t *testing.T) {
	dedup, err := NewDedup(16, time.Minute)
	assert.NoError(t, err)

	assert.False(t, dedup.Seen("cam-1", 1000.5))
	assert.True(t, dedup.Seen("cam-1", 1000.5))
	// Different frame on the same camera is new.
	assert.False(t, dedup.Seen("cam-1", 1000.6))
	// Same timestamp on another camera is new.
	assert.False(t, dedup.Seen("cam-2", 1000.5))
}

func TestDedup_LRUEviction(t *testing.T) {
	dedup, err := NewDedup(2, time.Minute)
	assert.NoError(t, err)

	assert.False(t, dedup.Seen("cam-1", 1))
	assert.False(t, dedup.Seen("cam-1", 2))
	assert.False(t, dedup.Seen("cam-1", 3)) // evicts ts=1

	assert.False(t, dedup.Seen("cam-1", 1))
}
