// Package worker implements the inference stage: it drains frame batches
// from the frame bus, runs detection and embedding, and publishes
// inference events to the event bus.
package worker

import (
	"time"

	"github.com/trinetra-retail/trinetra/internal/framebus"
)

// Accumulator collects bus entries into micro-batches. A batch flushes
// when it reaches the target size or when its oldest entry has waited
// the full timeout, whichever comes first. Size amortizes GPU dispatch
// overhead; the timeout bounds the latency a lone frame can incur.
type Accumulator struct {
	size    int
	timeout time.Duration

	entries []framebus.Entry
	oldest  time.Time
}

func NewAccumulator(size int, timeout time.Duration) *Accumulator {
	return &Accumulator{size: size, timeout: timeout}
}

func (a *Accumulator) Add(e framebus.Entry) {
	if len(a.entries) == 0 {
		a.oldest = time.Now()
	}
	a.entries = append(a.entries, e)
}

// Ready reports whether the pending batch should flush now.
func (a *Accumulator) Ready(now time.Time) bool {
	if len(a.entries) == 0 {
		return false
	}
	return len(a.entries) >= a.size || now.Sub(a.oldest) >= a.timeout
}

// Drain returns the pending batch and resets the accumulator.
func (a *Accumulator) Drain() []framebus.Entry {
	batch := a.entries
	a.entries = nil
	return batch
}

func (a *Accumulator) Pending() int {
	return len(a.entries)
}
