package audio

import (
	"sync"
)

// Capture is a thread-safe accumulator for recording audio. It grows with
// each appended chunk up to a fixed sample limit; anything past the limit
// is counted as dropped so the session can report truncation.
type Capture struct {
	samples []int16
	limit   int
	dropped int
	mu      sync.RWMutex
}

// NewCapture creates a capture buffer bounded at limit samples.
// A limit of zero or less means unbounded.
func NewCapture(limit int) *Capture {
	return &Capture{
		samples: make([]int16, 0, 4096),
		limit:   limit,
	}
}

// Append adds a chunk of samples to the capture.
// Returns the number of samples accepted (may be less than len(chunk)
// once the limit is reached).
func (c *Capture) Append(chunk []int16) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	accepted := len(chunk)
	if c.limit > 0 {
		space := c.limit - len(c.samples)
		if space <= 0 {
			c.dropped += len(chunk)
			return 0
		}
		if accepted > space {
			c.dropped += accepted - space
			accepted = space
		}
	}

	c.samples = append(c.samples, chunk[:accepted]...)
	return accepted
}

// Len returns the number of samples captured so far.
func (c *Capture) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples)
}

// Dropped returns the number of samples discarded after the limit.
func (c *Capture) Dropped() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped
}

// Snapshot returns a copy of the captured samples.
func (c *Capture) Snapshot() []int16 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]int16, len(c.samples))
	copy(out, c.samples)
	return out
}

// Reset clears the capture for reuse.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = c.samples[:0]
	c.dropped = 0
}
