// Package dht22 decodes the DHT22/AM2302 single-wire protocol.
//
// The sensor encodes each bit in the length of the interval between two
// falling edges on its data line. A Sensor is driven by two events: the
// caller starting a read, and the edge source (an interrupt handler or a
// GPIO event goroutine) reporting each falling edge. The edge path never
// blocks, and every value a caller reads is an atomic load, so the two
// contexts need no coordination beyond the Sensor itself.
//
// This package has NO dependency on real hardware. The data line and the
// microsecond clock are injected through Line and Clock.
package dht22

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Protocol timings in microseconds. Window bounds are exclusive.
const (
	triggerLowMicros  = 2000
	triggerHighMicros = 40

	wakeMin = 125
	wakeMax = 190

	bitMin       = 60
	bitThreshold = 100
	bitMax       = 145
)

// ErrReadInProgress is returned by StartRead when an attempt is already in flight.
var ErrReadInProgress = errors.New("dht22: read in progress")

// Line drives the sensor's data pin.
type Line interface {
	// DriveLow switches the pin to output and pulls it low.
	DriveLow() error
	// Release switches the pin back to input with pull-up so the sensor can drive it.
	Release() error
}

// Clock is a free-running microsecond counter. NowMicros wraps at 2^32;
// all elapsed-time arithmetic on it is unsigned.
type Clock interface {
	NowMicros() uint32
	// DelayMicros blocks the caller for at least us microseconds.
	DelayMicros(us uint32)
}

// Sensor is the decode state for one physical sensor.
// Create one per data line with New; it is not a singleton.
type Sensor struct {
	line  Line
	clock Clock

	status      atomic.Uint32
	result      atomic.Uint32
	humidity    atomic.Uint32
	temperature atomic.Int32
	lastEdge    atomic.Uint32

	// starting is held for the whole trigger sequence so concurrent
	// callers cannot interleave two wake-ups.
	starting sync.Mutex

	// mu serialises one edge step against the reset in StartRead and the
	// abort in BlockingRead. It is never held across a delay.
	mu   sync.Mutex
	data [FrameSize]byte
	bit  uint8
	pos  uint8
	done chan struct{}
}

// New returns an idle Sensor (status Invalid, result None).
func New(line Line, clock Clock) *Sensor {
	done := make(chan struct{})
	close(done)
	return &Sensor{
		line:  line,
		clock: clock,
		bit:   7,
		done:  done,
	}
}

// StartRead sends the wake-up sequence and arms the state machine.
// It blocks for the trigger delays (about 2ms), so it must not be called from
// the context that delivers edges. If an attempt is already in flight it
// returns ErrReadInProgress and changes nothing.
//
// While the trigger is being sent the status is Invalid, so the falling edge
// caused by driving the line low is ignored. A line error leaves the status
// Invalid and the previous result untouched.
func (s *Sensor) StartRead() error {
	if !s.starting.TryLock() {
		return ErrReadInProgress
	}
	defer s.starting.Unlock()

	s.mu.Lock()
	if s.State().active() {
		s.mu.Unlock()
		return ErrReadInProgress
	}
	s.data = [FrameSize]byte{}
	s.bit = 7
	s.pos = 0
	s.status.Store(uint32(Invalid))
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.line.DriveLow(); err != nil {
		s.cancelStart()
		return fmt.Errorf("dht22: drive line low: %w", err)
	}
	s.clock.DelayMicros(triggerLowMicros)
	if err := s.line.Release(); err != nil {
		s.cancelStart()
		return fmt.Errorf("dht22: release line: %w", err)
	}
	s.clock.DelayMicros(triggerHighMicros)

	s.mu.Lock()
	s.lastEdge.Store(s.clock.NowMicros())
	s.status.Store(uint32(WakingUp))
	s.mu.Unlock()
	return nil
}

// cancelStart wakes anyone waiting on an attempt whose trigger failed.
// The status was never active, so finish cannot have closed done.
func (s *Sensor) cancelStart() {
	s.mu.Lock()
	close(s.done)
	s.mu.Unlock()
}

// BlockingRead starts a read and waits until it completes or ctx ends.
// If a read is already in flight, including one still sending its trigger,
// it waits for that one instead.
// When ctx ends first the attempt is abandoned with result TimedOut;
// pass context.Background() to wait indefinitely.
// The returned error is non-nil only when the line could not be driven.
func (s *Sensor) BlockingRead(ctx context.Context) (Result, error) {
	if err := s.StartRead(); err != nil {
		if !errors.Is(err, ErrReadInProgress) {
			return s.LastResult(), err
		}
		// Another caller may be mid-trigger; once it lets go, done belongs
		// to its attempt.
		s.starting.Lock()
		s.starting.Unlock()
	}

	select {
	case <-s.Done():
	case <-ctx.Done():
		s.abort()
	}
	return s.LastResult(), nil
}

// Done returns a channel that is closed when the current attempt reaches
// Done or Invalid, or its trigger fails. It stays open while the trigger is
// being sent. With no attempt in flight the channel is already closed.
func (s *Sensor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// OnFallingEdge must be called once per falling edge on the data line, as
// close to the edge as possible. It timestamps the edge with the Clock.
func (s *Sensor) OnFallingEdge() {
	s.OnFallingEdgeAt(s.clock.NowMicros())
}

// OnFallingEdgeAt advances the state machine by one edge observed at now
// (microseconds, same domain as the Clock). Use it when the edge source
// timestamps events itself. Calls must not overlap each other.
func (s *Sensor) OnFallingEdgeAt(now uint32) {
	// Always measured from the previous edge, even one that was rejected.
	// An edge stamped before the last one (the sensor's pull-down during the
	// settle, delivered after arming) belongs to the idle period.
	var elapsed uint32
	for {
		last := s.lastEdge.Load()
		if int32(now-last) < 0 {
			return
		}
		if s.lastEdge.CompareAndSwap(last, now) {
			elapsed = now - last
			break
		}
	}

	if !s.State().active() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case WakingUp:
		if elapsed > wakeMin && elapsed < wakeMax {
			s.status.Store(uint32(Receiving))
			return
		}
		s.finish(WakeUpError, Invalid)
	case Receiving:
		if elapsed <= bitMin || elapsed >= bitMax {
			s.finish(DataError, Invalid)
			return
		}
		s.storeBit(elapsed > bitThreshold)
	}
}

// storeBit writes one bit MSB-first and validates the frame once all five
// bytes are in. Caller holds mu.
func (s *Sensor) storeBit(one bool) {
	if one {
		s.data[s.pos] |= 1 << s.bit
	}
	if s.bit > 0 {
		s.bit--
		return
	}
	s.bit = 7
	s.pos++
	if int(s.pos) < FrameSize {
		return
	}

	r, err := DecodeFrame(s.data)
	if err != nil {
		s.finish(ChecksumMismatch, Invalid)
		return
	}
	s.humidity.Store(uint32(r.Humidity))
	s.temperature.Store(int32(r.Temperature))
	s.finish(Ok, Done)
}

// abort abandons an in-flight attempt.
func (s *Sensor) abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State().active() {
		s.finish(TimedOut, Invalid)
	}
}

// finish records the outcome of the current attempt. Caller holds mu and
// has checked the attempt is active, so done is closed exactly once.
func (s *Sensor) finish(r Result, st Status) {
	s.result.Store(uint32(r))
	s.status.Store(uint32(st))
	close(s.done)
}

// State returns the current phase of the state machine.
func (s *Sensor) State() Status {
	return Status(s.status.Load())
}

// LastResult returns the outcome of the most recently completed attempt.
func (s *Sensor) LastResult() Result {
	return Result(s.result.Load())
}

// Temperature returns the last good temperature in tenths of °C.
// It is not cleared by failed attempts; check LastResult first.
func (s *Sensor) Temperature() int16 {
	return int16(s.temperature.Load())
}

// Humidity returns the last good relative humidity in tenths of a percent.
// It is not cleared by failed attempts; check LastResult first.
func (s *Sensor) Humidity() uint16 {
	return uint16(s.humidity.Load())
}

// LastReading returns the last good temperature and humidity together.
func (s *Sensor) LastReading() Reading {
	return Reading{Humidity: s.Humidity(), Temperature: s.Temperature()}
}
