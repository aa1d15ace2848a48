//go:build !linux

package gpio

import "time"

// MonotonicClock counts microseconds since it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock starting at zero.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{start: time.Now()}
}

// NowMicros returns microseconds since construction, wrapping at 2^32.
func (c MonotonicClock) NowMicros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// DelayMicros busy-waits for at least us microseconds.
func (c MonotonicClock) DelayMicros(us uint32) {
	busyDelay(c.NowMicros, us)
}
