package ingest

import "time"

const (
	reconnectInitial = 1 * time.Second
	reconnectCeiling = 30 * time.Second
)

// reconnectBackoff tracks the exponential reconnect delay of one camera
// reader: 1s, 2s, 4s, ... capped at 30s, reset on a successful frame.
type reconnectBackoff struct {
	delay time.Duration
}

func newReconnectBackoff() *reconnectBackoff {
	return &reconnectBackoff{delay: reconnectInitial}
}

// Next returns the delay to sleep before the current reconnect attempt and
// doubles it for the following one.
func (b *reconnectBackoff) Next() time.Duration {
	d := b.delay
	b.delay *= 2
	if b.delay > reconnectCeiling {
		b.delay = reconnectCeiling
	}
	return d
}

// Reset restores the initial delay after a successful frame read.
func (b *reconnectBackoff) Reset() {
	b.delay = reconnectInitial
}
