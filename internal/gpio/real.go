//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"
)

// RealLine drives a DHT22 data line through the Linux GPIO character device.
type RealLine struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	offset  int
	handler atomic.Pointer[func(uint32)]
	dropped atomic.Uint32
}

// NewRealLine requests the given line offset as an input with pull-up and
// falling-edge detection. Edge events carry the kernel's default
// CLOCK_MONOTONIC timestamps, the same clock MonotonicClock reads.
func NewRealLine(chipName string, offset int) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("dht22-sensor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	r := &RealLine{chip: chip, offset: offset}

	// The line idles high through the pull-up, matching the sensor's bus idle state.
	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(r.handleEvent),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", offset, err)
	}
	r.line = line

	log.Debug().Str("chip", chipName).Int("pin", offset).Msg("gpio line requested")
	return r, nil
}

func (r *RealLine) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	fn := r.handler.Load()
	if fn == nil {
		r.dropped.Add(1)
		return
	}
	(*fn)(uint32(evt.Timestamp / time.Microsecond))
}

// OnFallingEdge installs the edge callback. Edges before the first call are counted and dropped.
func (r *RealLine) OnFallingEdge(fn func(micros uint32)) {
	r.handler.Store(&fn)
}

// Dropped returns the number of edges that arrived with no callback installed.
func (r *RealLine) Dropped() uint32 {
	return r.dropped.Load()
}

// DriveLow reconfigures the line as an output at 0.
// Edge detection is only valid on inputs, so it is switched off here.
func (r *RealLine) DriveLow() error {
	if err := r.line.Reconfigure(gpiocdev.WithoutEdges, gpiocdev.AsOutput(0)); err != nil {
		return fmt.Errorf("drive pin %d low: %w", r.offset, err)
	}
	return nil
}

// Release returns the line to input with pull-up and re-arms falling-edge detection.
func (r *RealLine) Release() error {
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithFallingEdge); err != nil {
		return fmt.Errorf("release pin %d: %w", r.offset, err)
	}
	return nil
}

// Close releases GPIO resources.
// The line is left as an input with pull-up so the bus idles high.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.WithoutEdges, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", r.offset, err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", r.offset, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
