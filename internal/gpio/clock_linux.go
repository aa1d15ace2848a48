//go:build linux

package gpio

import "golang.org/x/sys/unix"

// MonotonicClock reads CLOCK_MONOTONIC in microseconds, truncated to 32 bits.
// gpiocdev edge events are stamped from the same clock.
type MonotonicClock struct{}

// NewMonotonicClock returns the system monotonic clock.
func NewMonotonicClock() MonotonicClock {
	return MonotonicClock{}
}

// NowMicros returns the current CLOCK_MONOTONIC time in microseconds, wrapping at 2^32.
func (MonotonicClock) NowMicros() uint32 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint32(ts.Nano() / 1000)
}

// DelayMicros busy-waits for at least us microseconds.
func (c MonotonicClock) DelayMicros(us uint32) {
	busyDelay(c.NowMicros, us)
}
