package gpio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pulse widths a healthy sensor produces, in microseconds.
const (
	FakeWakePulse = 160 // 80us low acknowledgement + 80us high
	FakeZeroPulse = 78  // 50us low + 28us high
	FakeOnePulse  = 120 // 50us low + 70us high
)

// FakeClock is a microsecond counter that only moves when told to.
// DelayMicros advances it instantly.
type FakeClock struct {
	now atomic.Uint32
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start uint32) *FakeClock {
	c := &FakeClock{}
	c.now.Store(start)
	return c
}

// NowMicros returns the current fake time.
func (c *FakeClock) NowMicros() uint32 {
	return c.now.Load()
}

// DelayMicros advances the clock by us.
func (c *FakeClock) DelayMicros(us uint32) {
	c.now.Add(us)
}

// Advance moves the clock forward and returns the new time.
func (c *FakeClock) Advance(us uint32) uint32 {
	return c.now.Add(us)
}

// FramePulses returns the edge intervals a sensor produces when sending
// frame: the wake-up acknowledgement followed by 40 bits, MSB first.
func FramePulses(frame [5]byte) []uint32 {
	pulses := make([]uint32, 0, 41)
	pulses = append(pulses, FakeWakePulse)
	for _, b := range frame {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<bit) != 0 {
				pulses = append(pulses, FakeOnePulse)
			} else {
				pulses = append(pulses, FakeZeroPulse)
			}
		}
	}
	return pulses
}

// FakeLine is a test double that simulates a sensor on the data line.
// Each Release consumes the next entry of Script and replays its pulses as
// falling edges from a separate goroutine, like a real edge source.
type FakeLine struct {
	// Clock provides edge timestamps; it is advanced by each pulse.
	Clock *FakeClock

	// Script holds the edge intervals to replay, one entry per Release.
	// A nil entry, or running off the end, leaves the line silent.
	Script [][]uint32

	// Armed reports when the decoder is ready for edges. Replay starts once
	// it returns true. If nil, replay starts immediately.
	Armed func() bool

	// DriveLowError and ReleaseError, if set, are returned by the matching call.
	DriveLowError error
	ReleaseError  error

	mu      sync.Mutex
	calls   []string
	index   int
	closed  bool
	handler func(uint32)
	wg      sync.WaitGroup
}

// NewFakeLine creates a FakeLine with the given clock and script.
func NewFakeLine(clock *FakeClock, script ...[]uint32) *FakeLine {
	return &FakeLine{Clock: clock, Script: script}
}

// OnFallingEdge installs the edge callback.
func (f *FakeLine) OnFallingEdge(fn func(micros uint32)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

// DriveLow records the call.
func (f *FakeLine) DriveLow() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "low")
	return f.DriveLowError
}

// Release records the call and starts replaying the next scripted transmission.
// A transmission still in flight from an earlier Release finishes first, as
// it would on a real wire.
func (f *FakeLine) Release() error {
	f.wg.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "release")
	if f.ReleaseError != nil {
		return f.ReleaseError
	}

	if f.index >= len(f.Script) {
		return nil
	}
	pulses := f.Script[f.index]
	f.index++
	if len(pulses) == 0 || f.handler == nil {
		return nil
	}

	f.wg.Add(1)
	go f.transmit(f.handler, pulses)
	return nil
}

func (f *FakeLine) transmit(fn func(uint32), pulses []uint32) {
	defer f.wg.Done()

	deadline := time.Now().Add(time.Second)
	for f.Armed != nil && !f.Armed() {
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(50 * time.Microsecond)
	}
	for _, p := range pulses {
		fn(f.Clock.Advance(p))
	}
}

// Wait blocks until every started transmission has been replayed.
func (f *FakeLine) Wait() {
	f.wg.Wait()
}

// Calls returns the recorded DriveLow/Release calls in order.
func (f *FakeLine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Closed reports whether Close was called.
func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Reset rewinds the script and clears recorded calls.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.index = 0
	f.calls = nil
	f.closed = false
	f.mu.Unlock()
}
