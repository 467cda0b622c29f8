package resolver

import (
	"github.com/trinetra-retail/trinetra/internal/config"
	"github.com/trinetra-retail/trinetra/internal/metrics"
)

// Decision is the gate verdict for one candidate match.
type Decision int

const (
	Accept Decision = iota
	RejectPhysics
)

const physicsReason = "physics"

// Gate rejects candidate matches that would require physically impossible
// movement between cameras. It consults the registry for the candidate's
// last accepted sighting and the travel matrix for the minimum plausible
// transit time between that camera and the current one.
type Gate struct {
	registry *Registry
	travel   func() *config.TravelMatrix
	window   float64
}

// NewGate builds a gate over the registry. travel is called per check so
// hot reloads of the matrix take effect without restarting the resolver.
func NewGate(registry *Registry, travel func() *config.TravelMatrix, windowSeconds float64) *Gate {
	return &Gate{registry: registry, travel: travel, window: windowSeconds}
}

// Check gates one candidate sighting of customerID on cameraID at ts.
//
// A candidate is accepted when there is no prior sighting, when the
// sighting is on the same camera, or when the elapsed time since the
// last sighting is outside the gate window or at least the minimum
// travel time between the two cameras. Exactly the minimum is accepted;
// only strictly faster-than-possible movement is rejected.
func (g *Gate) Check(customerID, cameraID string, ts float64) Decision {
	last, ok := g.registry.Last(customerID, ts)
	if !ok {
		return Accept
	}
	if last.CameraID == cameraID {
		return Accept
	}

	elapsed := ts - last.TS
	if elapsed > g.window {
		return Accept
	}
	if elapsed < g.travel().MinTravel(last.CameraID, cameraID) {
		metrics.GateRejections.WithLabelValues(physicsReason).Inc()
		return RejectPhysics
	}
	return Accept
}
