//go:build !linux

package gpio

import "errors"

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chipName string, offset int) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// OnFallingEdge is a no-op on non-Linux platforms.
func (r *RealLine) OnFallingEdge(fn func(micros uint32)) {}

// Dropped always returns 0 on non-Linux platforms.
func (r *RealLine) Dropped() uint32 { return 0 }

// DriveLow is not implemented on non-Linux platforms.
func (r *RealLine) DriveLow() error {
	return errors.New("gpio: not supported")
}

// Release is not implemented on non-Linux platforms.
func (r *RealLine) Release() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}
