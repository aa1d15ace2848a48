// Package gpio provides the DHT22 data line and microsecond clock.
// The real implementation uses the Linux GPIO character device, whose
// kernel-stamped edge events stand in for a hardware interrupt.
// The fake implementation simulates a sensor so everything above it can be
// tested without hardware.
package gpio

// Line is a single-wire data line that can be driven low, released, and
// watched for falling edges.
type Line interface {
	// DriveLow switches the line to output and pulls it low.
	DriveLow() error

	// Release switches the line to input with pull-up and arms falling-edge
	// detection.
	Release() error

	// OnFallingEdge installs the edge callback. fn receives the edge time in
	// microseconds in the same domain as the package clock, and is called
	// from a single goroutine, one edge at a time.
	OnFallingEdge(fn func(micros uint32))

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi with the sensor on BCM4.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 4
)
